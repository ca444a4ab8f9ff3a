package landing

import "html/template"

// The landing surface is deliberately plain HTML with no client-side
// code: it must render on any phone browser straight from an SMS tap.

const basePage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{block "title" .}}Care Actions{{end}}</title>
  <style>
    body { font-family: sans-serif; max-width: 600px; margin: 40px auto; padding: 0 16px; }
    label { display: block; margin-top: 12px; }
    input, select, textarea { width: 100%; padding: 8px; margin-top: 4px; box-sizing: border-box; }
    button { margin-top: 16px; padding: 10px 24px; }
    small { color: #666; }
  </style>
</head>
<body>
{{block "body" .}}{{end}}
</body>
</html>`

const menuPage = `{{define "title"}}Care Actions{{end}}
{{define "body"}}
  <h2>Care actions</h2>
  <p>Your care team is checking in about: <strong>{{.MeasureDisplay}}</strong></p>
  <ul>
    {{range .Actions}}<li><a href="{{.URL}}">{{.Label}}</a></li>
    {{end}}
  </ul>
  <p><small>No health details are stored in text messages. Links expire after a limited time.</small></p>
{{end}}`

const bpFormPage = `{{define "title"}}Submit Blood Pressure{{end}}
{{define "body"}}
  <h3>Submit Blood Pressure</h3>
  <form method="post" action="/bp">
    <input type="hidden" name="t" value="{{.Token}}">
    <label>Systolic</label><input name="sys" required type="number" min="40" max="300">
    <label>Diastolic</label><input name="dia" required type="number" min="20" max="200">
    <button type="submit">Submit</button>
  </form>
{{end}}`

const referralFormPage = `{{define "title"}}Referral Request{{end}}
{{define "body"}}
  <h3>Referral Request</h3>
  <form method="post" action="/referral">
    <input type="hidden" name="t" value="{{.Token}}">
    <label>Reason</label>
    <select name="reason" required>
      <option>Cardiology</option>
      <option>Endocrinology</option>
      <option>Behavioral Health</option>
      <option>Other</option>
    </select>
    <label>Details (optional)</label><textarea name="ft" rows="4"></textarea>
    <button type="submit">Submit</button>
  </form>
{{end}}`

const thanksPage = `{{define "title"}}Thank You{{end}}
{{define "body"}}
  <p>Thanks! Your information has been received.</p>
{{end}}`

const linkErrorPage = `{{define "title"}}Link Problem{{end}}
{{define "body"}}
  <h3>This link is invalid or has expired</h3>
  <p>Please contact your clinic to request a new one.</p>
{{end}}`

func mustParse(pages ...string) *template.Template {
	t := template.Must(template.New("base").Parse(basePage))
	for _, p := range pages {
		t = template.Must(t.Parse(p))
	}
	return t
}

var (
	menuTmpl      = mustParse(menuPage)
	bpFormTmpl    = mustParse(bpFormPage)
	referralTmpl  = mustParse(referralFormPage)
	thanksTmpl    = mustParse(thanksPage)
	linkErrorTmpl = mustParse(linkErrorPage)
)
