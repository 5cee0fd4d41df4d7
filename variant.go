package sheetcrud

import (
	"strconv"
	"strings"
	"time"
)

// FieldKind describes how a field is entered and typed.
type FieldKind int

const (
	KindText FieldKind = iota
	KindLongText
	KindInt
	KindEmail
	KindChoice
)

// Field is one column a variant's form collects.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Min, Max int64 // KindInt only; Min == Max means unbounded

	// Choices lists the allowed values of a KindChoice field. ChoicesFor,
	// when set, narrows them by the rest of the draft (voices per language).
	Choices    []string
	ChoicesFor func(d Draft) []string

	// Managed fields are filled by Stamp and never shown in a form.
	Managed bool
}

// AllowedChoices returns the values the field accepts for this draft
func (f Field) AllowedChoices(d Draft) []string {
	if f.ChoicesFor != nil {
		return f.ChoicesFor(d)
	}
	return f.Choices
}

// Variant names a record field set and the policies that apply to it.
type Variant struct {
	Name   string
	Fields []Field

	// Validate checks a parsed draft before it may be confirmed.
	Validate func(d Draft) error

	// Stamp fills managed columns at commit time.
	Stamp func(d Draft, creating bool, now time.Time) Draft
}

// Columns returns the value columns of the variant in form order
func (v *Variant) Columns() []string {
	cols := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// FormFields returns the fields a user edits
func (v *Variant) FormFields() []Field {
	fields := make([]Field, 0, len(v.Fields))
	for _, f := range v.Fields {
		if !f.Managed {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field looks a field up by column name
func (v *Variant) Field(name string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Parse converts raw form input into a typed draft. Only form fields are read.
func (v *Variant) Parse(inputs map[string]string) (Draft, error) {
	d := make(Draft, len(v.Fields))
	for _, f := range v.FormFields() {
		raw := strings.TrimSpace(inputs[f.Name])
		switch f.Kind {
		case KindInt:
			if raw == "" {
				d[f.Name] = nil
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, &ValidationError{Field: f.Name, Message: "must be a whole number"}
			}
			if f.Min != f.Max && (n < f.Min || n > f.Max) {
				return nil, &ValidationError{
					Field:   f.Name,
					Message: "must be between " + strconv.FormatInt(f.Min, 10) + " and " + strconv.FormatInt(f.Max, 10),
				}
			}
			d[f.Name] = n
		case KindLongText:
			// 本文は改行を保持する
			d[f.Name] = strings.TrimRight(inputs[f.Name], " \t")
		default:
			d[f.Name] = raw
		}
	}
	return d, nil
}

// Check runs the variant validation policy on a draft
func (v *Variant) Check(d Draft) error {
	if v.Validate == nil {
		return nil
	}
	return v.Validate(d)
}

// Normalize types loaded cell text in place. Only KindInt columns are
// converted; text that is not a whole number is left as it was, and every
// other column keeps its text.
func (v *Variant) Normalize(values map[string]interface{}) {
	for _, f := range v.Fields {
		if f.Kind != KindInt {
			continue
		}
		raw, ok := values[f.Name].(string)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			delete(values, f.Name)
			continue
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			values[f.Name] = n
		}
	}
}

// Inputs renders a draft back into raw form input
func (v *Variant) Inputs(d Draft) map[string]string {
	inputs := make(map[string]string, len(v.Fields))
	r := &Record{Values: d}
	for _, f := range v.FormFields() {
		inputs[f.Name] = r.GetAsString(f.Name, "")
	}
	return inputs
}

func requireText(d Draft, field string) error {
	s, _ := d[field].(string)
	if strings.TrimSpace(s) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ContactVariant is the generic name/age/email record set. It is the only
// variant that checks the email shape.
var ContactVariant = &Variant{
	Name: "contact",
	Fields: []Field{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "age", Label: "Age", Kind: KindInt, Min: 0, Max: 120},
		{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
	},
	Validate: func(d Draft) error {
		if err := requireText(d, "name"); err != nil {
			return err
		}
		email, _ := d["email"].(string)
		if email == "" || !strings.Contains(email, "@") {
			return &ValidationError{Field: "email", Message: "must be a valid email address"}
		}
		return nil
	},
}

// SpeechLanguages lists the synthesis languages in menu order.
var SpeechLanguages = []string{"ja-JP", "en-US", "en-GB"}

// SpeechVoices returns the selectable voices of a language
func SpeechVoices(language string) []string {
	voices := make([]string, 0, 4)
	for _, suffix := range []string{"A", "B", "C", "D"} {
		voices = append(voices, language+"-Wavenet-"+suffix)
	}
	return voices
}

func draftLanguage(d Draft) string {
	if lang, _ := d["language"].(string); lang != "" {
		return lang
	}
	return SpeechLanguages[0]
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

// SpeechVariant is the title/text/voice record set used for speech synthesis.
var SpeechVariant = &Variant{
	Name: "speech",
	Fields: []Field{
		{Name: "title", Label: "Title", Kind: KindText, Required: true},
		{Name: "text_content", Label: "Text", Kind: KindLongText, Required: true},
		{Name: "language", Label: "Language", Kind: KindChoice, Choices: SpeechLanguages},
		{Name: "voice", Label: "Voice", Kind: KindChoice, ChoicesFor: func(d Draft) []string {
			return SpeechVoices(draftLanguage(d))
		}},
		{Name: "created_at", Label: "Created", Managed: true},
		{Name: "updated_at", Label: "Updated", Managed: true},
	},
	Validate: func(d Draft) error {
		if err := requireText(d, "title"); err != nil {
			return err
		}
		if err := requireText(d, "text_content"); err != nil {
			return err
		}
		lang := draftLanguage(d)
		if !oneOf(lang, SpeechLanguages) {
			return &ValidationError{Field: "language", Message: "unsupported language " + lang}
		}
		if voice, _ := d["voice"].(string); voice != "" && !oneOf(voice, SpeechVoices(lang)) {
			return &ValidationError{Field: "voice", Message: "voice " + voice + " does not belong to " + lang}
		}
		return nil
	},
	Stamp: func(d Draft, creating bool, now time.Time) Draft {
		out := d.Clone()
		lang := draftLanguage(out)
		out["language"] = lang
		if voice, _ := out["voice"].(string); voice == "" {
			out["voice"] = SpeechVoices(lang)[0]
		}
		ts := now.Format(TimestampLayout)
		if creating {
			out["created_at"] = ts
		}
		out["updated_at"] = ts
		return out
	},
}

// LookupVariant returns a built-in variant by name
func LookupVariant(name string) (*Variant, bool) {
	switch name {
	case ContactVariant.Name:
		return ContactVariant, true
	case SpeechVariant.Name:
		return SpeechVariant, true
	}
	return nil, false
}
