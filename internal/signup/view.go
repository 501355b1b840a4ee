package signup

import (
	"html/template"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
)

type stepView struct {
	Number int
	ID     string
	Name   string
	Status string
}

type fieldView struct {
	forms.Field
	Value string
	Error string
}

type reviewItem struct {
	Label string
	Value string
}

type wizardView struct {
	Title       string
	Index       int
	Total       int
	Direction   string
	Step        stepView
	Steps       []stepView
	Fields      []fieldView
	Review      []reviewItem
	CanPrevious bool
	CanNext     bool
	CanSubmit   bool
	Pending     bool
	Submitted   bool
	SubmitError string
	Name        string
}

func (c *Wizard) view() wizardView {
	st := c.ctrl.State()
	record := c.ctrl.Record()
	errs := c.ctrl.Errors()
	all := c.ctrl.Steps()

	v := wizardView{
		Title:       c.title,
		Index:       st.Current,
		Total:       len(all),
		Direction:   st.Direction.String(),
		CanPrevious: c.ctrl.CanGoPrevious(),
		CanNext:     c.ctrl.CanGoNext(),
		CanSubmit:   c.ctrl.CanSubmit(),
		Pending:     c.ctrl.Pending(),
		Submitted:   st.Submitted,
		SubmitError: c.submitError,
	}

	for i, s := range all {
		sv := stepView{Number: i + 1, ID: s.ID, Name: s.Name, Status: "upcoming"}
		switch {
		case st.Submitted || i < st.Current:
			sv.Status = "complete"
		case i == st.Current:
			sv.Status = "current"
		}
		v.Steps = append(v.Steps, sv)
	}
	v.Step = v.Steps[st.Current]

	current := all[st.Current]
	for _, name := range current.Fields {
		f, ok := c.schema.Field(name)
		if !ok {
			f = forms.Field{Name: name, Type: forms.FieldText, Label: name}
		}
		v.Fields = append(v.Fields, fieldView{
			Field: f,
			Value: record[name],
			Error: errs[name],
		})
	}

	if st.Current == len(all)-1 {
		for _, s := range all[:st.Current] {
			for _, name := range s.Fields {
				label := name
				if f, ok := c.schema.Field(name); ok && f.Label != "" {
					label = f.Label
				}
				v.Review = append(v.Review, reviewItem{Label: label, Value: record[name]})
			}
		}
	}

	if st.Submitted {
		if a, err := DecodeApplicant(record); err == nil {
			v.Name = a.FirstName
		}
	}
	return v
}

var wizardTemplate = template.Must(template.New("wizard").Parse(`
<section class="stepform" data-step="{{.Index}}" data-direction="{{.Direction}}"{{if .Pending}} aria-busy="true"{{end}}>
  {{with .Title}}<h1 class="stepform-title">{{.}}</h1>{{end}}
  <ol class="stepform-progress">
    {{range .Steps}}
    <li class="step step-{{.Status}}"{{if eq .Status "current"}} aria-current="step"{{end}}>
      <span class="step-number">{{.Number}}</span>
      <span class="step-name">{{.Name}}</span>
    </li>
    {{end}}
  </ol>
  {{if .Submitted}}
  <div class="stepform-done" role="status">
    <h2>Thank you{{with .Name}}, {{.}}{{end}}!</h2>
    <p>Your information has been submitted.</p>
  </div>
  {{else}}
  <form class="stepform-body" lv-submit="{{if .CanSubmit}}submit{{else}}next{{end}}" novalidate>
    <h2 class="step-title">Step {{.Step.Number}} of {{.Total}}: {{.Step.Name}}</h2>
    {{range .Fields}}
    <div class="field{{if .Error}} field-invalid{{end}}">
      <label for="field-{{.Name}}">{{.Label}}{{if .Required}} <span class="required" aria-hidden="true">*</span>{{end}}</label>
      {{if eq (print .Type) "select"}}
      <select id="field-{{.Name}}" name="{{.Name}}" lv-change="change"{{if .Error}} aria-invalid="true" aria-describedby="error-{{.Name}}"{{end}}>
        <option value="">Choose…</option>
        {{$value := .Value}}
        {{range .Options}}<option value="{{.Value}}"{{if eq .Value $value}} selected{{end}}>{{.Label}}</option>{{end}}
      </select>
      {{else if eq (print .Type) "textarea"}}
      <textarea id="field-{{.Name}}" name="{{.Name}}" lv-change="change"{{with .Placeholder}} placeholder="{{.}}"{{end}}{{if .Error}} aria-invalid="true" aria-describedby="error-{{.Name}}"{{end}}>{{.Value}}</textarea>
      {{else}}
      <input id="field-{{.Name}}" name="{{.Name}}" type="{{.Type}}" value="{{.Value}}" lv-change="change"{{with .Placeholder}} placeholder="{{.}}"{{end}}{{with .Autocomplete}} autocomplete="{{.}}"{{end}}{{if .Error}} aria-invalid="true" aria-describedby="error-{{.Name}}"{{end}}>
      {{end}}
      {{with .Help}}<p class="field-help">{{.}}</p>{{end}}
      {{if .Error}}<p class="field-error" id="error-{{.Name}}" role="alert">{{.Error}}</p>{{end}}
    </div>
    {{end}}
    {{if .Review}}
    <dl class="stepform-review">
      {{range .Review}}<dt>{{.Label}}</dt><dd>{{.Value}}</dd>{{end}}
    </dl>
    {{end}}
    {{with .SubmitError}}<p class="stepform-alert" role="alert">{{.}}</p>{{end}}
    <div class="stepform-actions">
      {{if .CanPrevious}}<button type="button" class="btn btn-secondary" lv-click="previous">Previous</button>{{end}}
      {{if .CanNext}}<button type="submit" class="btn btn-primary">Next</button>{{end}}
      {{if .CanSubmit}}<button type="submit" class="btn btn-primary">Submit</button>{{end}}
    </div>
  </form>
  {{end}}
</section>
`))
