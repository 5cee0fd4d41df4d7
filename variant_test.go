package sheetcrud_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

func TestContactVariant_Parse(t *testing.T) {
	v := sheetcrud.ContactVariant

	tests := []struct {
		name      string
		inputs    map[string]string
		want      sheetcrud.Draft
		wantField string
	}{
		{
			name:   "typed values",
			inputs: map[string]string{"name": " Alice ", "age": "30", "email": "a@x.com"},
			want:   sheetcrud.Draft{"name": "Alice", "age": int64(30), "email": "a@x.com"},
		},
		{
			name:   "blank age clears the column",
			inputs: map[string]string{"name": "Bob", "age": "", "email": "b@x.com"},
			want:   sheetcrud.Draft{"name": "Bob", "age": nil, "email": "b@x.com"},
		},
		{name: "age not a number", inputs: map[string]string{"age": "thirty"}, wantField: "age"},
		{name: "age out of range", inputs: map[string]string{"age": "121"}, wantField: "age"},
		{name: "negative age", inputs: map[string]string{"age": "-1"}, wantField: "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Parse(tt.inputs)
			if tt.wantField != "" {
				var verr *sheetcrud.ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.wantField {
					t.Fatalf("Parse() error = %v, want validation error on %s", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestContactVariant_Check(t *testing.T) {
	tests := []struct {
		name      string
		draft     sheetcrud.Draft
		wantField string
	}{
		{"valid", sheetcrud.Draft{"name": "Alice", "email": "a@x.com"}, ""},
		{"missing name", sheetcrud.Draft{"name": "  ", "email": "a@x.com"}, "name"},
		{"missing email", sheetcrud.Draft{"name": "Alice"}, "email"},
		{"email without at", sheetcrud.Draft{"name": "Alice", "email": "alice"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sheetcrud.ContactVariant.Check(tt.draft)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Check() error = %v", err)
				}
				return
			}
			var verr *sheetcrud.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("Check() error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestSpeechVariant_Check(t *testing.T) {
	base := func() sheetcrud.Draft {
		return sheetcrud.Draft{"title": "Hello", "text_content": "こんにちは", "language": "ja-JP", "voice": "ja-JP-Wavenet-B"}
	}

	if err := sheetcrud.SpeechVariant.Check(base()); err != nil {
		t.Fatalf("Check(valid) error = %v", err)
	}

	// emailの形式はspeechでは検査しない
	d := base()
	d["email"] = "not-an-email"
	if err := sheetcrud.SpeechVariant.Check(d); err != nil {
		t.Errorf("speech variant should not check email: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(d sheetcrud.Draft)
		wantField string
	}{
		{"missing title", func(d sheetcrud.Draft) { delete(d, "title") }, "title"},
		{"blank text", func(d sheetcrud.Draft) { d["text_content"] = "\n" }, "text_content"},
		{"unknown language", func(d sheetcrud.Draft) { d["language"] = "fr-FR" }, "language"},
		{"voice of another language", func(d sheetcrud.Draft) { d["voice"] = "en-US-Wavenet-A" }, "voice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(d)
			var verr *sheetcrud.ValidationError
			if err := sheetcrud.SpeechVariant.Check(d); !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("Check() error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestSpeechVariant_ParseKeepsLineBreaks(t *testing.T) {
	d, err := sheetcrud.SpeechVariant.Parse(map[string]string{
		"title":        "t",
		"text_content": "line one\nline two  ",
		"created_at":   "ignored",
	})
	if err != nil {
		t.Fatal(err)
	}
	if d["text_content"] != "line one\nline two" {
		t.Errorf("text_content = %q", d["text_content"])
	}
	if _, ok := d["created_at"]; ok {
		t.Error("managed columns must not be parsed from input")
	}
}

func TestSpeechVariant_Stamp(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := sheetcrud.SpeechVariant.Stamp(sheetcrud.Draft{"title": "t", "text_content": "x"}, true, created)

	if d["language"] != "ja-JP" || d["voice"] != "ja-JP-Wavenet-A" {
		t.Errorf("defaults = %v / %v", d["language"], d["voice"])
	}
	if d["created_at"] != "2024-05-01 10:00:00" || d["updated_at"] != "2024-05-01 10:00:00" {
		t.Errorf("timestamps = %v / %v", d["created_at"], d["updated_at"])
	}

	later := created.Add(time.Hour)
	u := sheetcrud.SpeechVariant.Stamp(sheetcrud.Draft{"language": "en-GB"}, false, later)
	if _, ok := u["created_at"]; ok {
		t.Error("updates must not touch created_at")
	}
	if u["updated_at"] != "2024-05-01 11:00:00" || u["voice"] != "en-GB-Wavenet-A" {
		t.Errorf("update stamp = %v", u)
	}
}

func TestVariant_Normalize(t *testing.T) {
	values := map[string]interface{}{
		"name":  "007",
		"age":   " 30 ",
		"email": "TRUE",
		"phone": "0123",
	}
	sheetcrud.ContactVariant.Normalize(values)

	want := map[string]interface{}{
		"name":  "007",
		"age":   int64(30),
		"email": "TRUE",
		"phone": "0123",
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("Normalize() = %#v, want %#v", values, want)
	}

	tests := []struct {
		name string
		in   interface{}
		want interface{}
		kept bool
	}{
		{"empty text drops the value", "", nil, false},
		{"non numeric text stays", "thirty", "thirty", true},
		{"typed value stays", int64(41), int64(41), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]interface{}{"age": tt.in}
			sheetcrud.ContactVariant.Normalize(values)
			got, ok := values["age"]
			if ok != tt.kept || got != tt.want {
				t.Errorf("age = %#v (present %v), want %#v (present %v)", got, ok, tt.want, tt.kept)
			}
		})
	}
}

func TestVariant_ColumnsAndInputs(t *testing.T) {
	v := sheetcrud.SpeechVariant
	want := []string{"title", "text_content", "language", "voice", "created_at", "updated_at"}
	if got := v.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v", got)
	}
	if got := len(v.FormFields()); got != 4 {
		t.Errorf("FormFields() = %d fields, want 4", got)
	}
	if f, ok := v.Field("voice"); !ok || !reflect.DeepEqual(f.AllowedChoices(sheetcrud.Draft{"language": "en-US"}), sheetcrud.SpeechVoices("en-US")) {
		t.Errorf("voice choices = %v", f.AllowedChoices(sheetcrud.Draft{"language": "en-US"}))
	}

	inputs := sheetcrud.ContactVariant.Inputs(sheetcrud.Draft{"name": "Alice", "age": int64(30)})
	if !reflect.DeepEqual(inputs, map[string]string{"name": "Alice", "age": "30", "email": ""}) {
		t.Errorf("Inputs() = %v", inputs)
	}
}

func TestLookupVariant(t *testing.T) {
	for _, name := range []string{"contact", "speech"} {
		if v, ok := sheetcrud.LookupVariant(name); !ok || v.Name != name {
			t.Errorf("LookupVariant(%q) = %v, %v", name, v, ok)
		}
	}
	if _, ok := sheetcrud.LookupVariant("invoice"); ok {
		t.Error("unknown variant should not resolve")
	}
}
