package taxonomyservice

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/player"
)

// The root element carries data-role="node-info" so clients can detach it as one unit.
var nodeInfoTmpl = template.Must(template.New("node-info").Parse(`<div class="taxonomy-node-info" data-role="node-info" data-category="{{.Info.CategoryID}}">
<h4>{{.Info.Name}}</h4>
{{- with .Info.Description}}
<p class="description">{{.}}</p>
{{- end}}
{{- if .Info.Omitted}}
<p class="omitted">This category is omitted from annotation.</p>
{{- end}}
{{- with .Info.FAQ}}
<p class="faq">{{.}}</p>
{{- end}}
{{- with .Info.CitationURI}}
<a class="citation" href="{{.}}" target="_blank">Read more</a>
{{- end}}
{{- if .Info.Children}}
<ul class="children">
{{- range .Info.Children}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Examples}}
<div class="sound-examples">
{{- range .Examples}}
<figure class="sound-example" data-sound-url="{{.SoundURL}}" data-spectrogram-url="{{.SpectrogramURL}}" data-waveform-url="{{.WaveformURL}}" data-duration="{{.Duration}}" data-gain="{{.Gain}}"></figure>
{{- end}}
</div>
{{- end}}
{{- if .Annotate}}
<a class="annotate" href="{{.Annotate}}">Annotate this category</a>
{{- end}}
</div>
`))

type fragmentData struct {
	Info     *models.NodeInfo
	Examples []exampleData
	Annotate string
}

// exampleData is a sound example with its playback gain, the linear factor that
// normalizes the clip's loudness.
type exampleData struct {
	models.SoundExample
	Gain string
}

// NodeInfoHTML renders the detail panel fragment for the category shown under name.
// A non-zero generationTask adds the annotation call to action for that task.
func (s *Service) NodeInfoHTML(ctx context.Context, name string, generationTask int) (string, error) {
	info, err := s.NodeInfo(ctx, name)
	if err != nil {
		return "", err
	}
	return RenderNodeInfo(info, generationTask)
}

// RenderNodeInfo renders info as an HTML fragment.
func RenderNodeInfo(info *models.NodeInfo, generationTask int) (string, error) {
	data := fragmentData{Info: info}
	for _, ex := range info.Examples {
		gain := player.Loudness{RMS: ex.RMS, Peak: ex.Peak}.Gain(player.DefaultTargetRMS, player.DefaultPeakCeiling)
		data.Examples = append(data.Examples, exampleData{
			SoundExample: ex,
			Gain:         strconv.FormatFloat(gain, 'f', 3, 64),
		})
	}
	if generationTask != 0 && !info.Omitted {
		data.Annotate = fmt.Sprintf("/tasks/%d/annotate?category=%s", generationTask, url.QueryEscape(info.CategoryID))
	}
	var buf bytes.Buffer
	if err := nodeInfoTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("taxonomyservice: render node info: %w", err)
	}
	return buf.String(), nil
}
