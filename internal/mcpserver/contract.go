package mcpserver

// SourceFormat describes the ontology source file the taxonomy is built from.
const SourceFormat = `# Ontology Source Format

The taxonomy is built from a single source file holding a flat list of categories.
Files ending in .yaml or .yml are read as YAML; anything else as JSON.

## Entry fields

| Field          | Required | Meaning                                                        |
|----------------|----------|----------------------------------------------------------------|
| id             | yes      | Stable ontology id, unique in the file (e.g. /m/0bt9lr).       |
| name           | yes      | Display name; also the key detail panels are requested by.    |
| description    | no       | One or two sentences shown in the detail panel.                |
| citation_uri   | no       | Link to an external definition.                                |
| faq            | no       | Annotation guidance shown in the detail panel.                 |
| child_ids      | no       | Ordered ids of the children. A category may appear under several parents. |
| restrictions   | no       | List of flags. "omitted" hides the annotation call to action.  |
| examples       | no       | Reference recordings: sound_url (required), spectrogram_url, waveform_url, duration (s), rms, peak. |

## Rules

1. Every id listed in child_ids must exist in the file.
2. Following child_ids must never lead back to the starting category, and every
   category must be reachable from the top level.
3. Categories listed by no other category become the top level, in file order.
4. Each placement gets a node id equal to its position among its siblings; the
   bigId of a placement joins the node ids from the top level down with commas.
   Reordering child_ids therefore changes bigIds.

## Example

` + "```" + `json
[
  {"id": "/m/animal", "name": "Animal", "child_ids": ["/m/dog"]},
  {"id": "/m/dog", "name": "Dog", "description": "Sounds of dogs.", "child_ids": ["/m/bark"]},
  {"id": "/m/bark", "name": "Bark"}
]
` + "```" + `

Here Animal is 0, Dog is 0,0 and Bark is 0,0,0.
`
