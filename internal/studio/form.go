package studio

import (
	"fmt"
	"image"
)

// Field names a form input.
type Field string

const (
	FieldText          Field = "text"
	FieldSize          Field = "size"
	FieldForeground    Field = "fg"
	FieldBackground    Field = "bg"
	FieldDotStyle      Field = "dotStyle"
	FieldMargin        Field = "margin"
	FieldGlyph         Field = "glyph"
	FieldCaptionTop    Field = "captionTop"
	FieldCaptionBottom Field = "captionBottom"
	FieldPadding       Field = "padding"
	FieldFormat        Field = "format"
)

type trigger int

const (
	triggerNone trigger = iota
	triggerDebounced
	triggerImmediate
)

// trigger reports how an edit to f schedules regeneration. Typed inputs
// are debounced; pickers are not typed continuously and render at once.
// The export format only matters at download time.
func (f Field) trigger() trigger {
	switch f {
	case FieldForeground, FieldBackground, FieldDotStyle:
		return triggerImmediate
	case FieldFormat:
		return triggerNone
	default:
		return triggerDebounced
	}
}

// FormState holds the raw value of every input, exactly as entered.
type FormState struct {
	Text          string `json:"text"`
	Size          string `json:"size"`
	Foreground    string `json:"fg"`
	Background    string `json:"bg"`
	DotStyle      string `json:"dotStyle"`
	Margin        string `json:"margin"`
	Glyph         string `json:"glyph"`
	CaptionTop    string `json:"captionTop"`
	CaptionBottom string `json:"captionBottom"`
	Padding       string `json:"padding"`
	Format        string `json:"format"`

	// Logo is an uploaded image; it takes precedence over Glyph.
	Logo image.Image `json:"-"`
}

// DefaultForm is the form as first shown.
func DefaultForm() FormState {
	return FormState{
		Size:       "256",
		Foreground: "#000000",
		Background: "#ffffff",
		DotStyle:   "square",
		Margin:     "10",
		Padding:    "0",
		Format:     "png",
	}
}

func (f *FormState) field(name Field) (*string, error) {
	switch name {
	case FieldText:
		return &f.Text, nil
	case FieldSize:
		return &f.Size, nil
	case FieldForeground:
		return &f.Foreground, nil
	case FieldBackground:
		return &f.Background, nil
	case FieldDotStyle:
		return &f.DotStyle, nil
	case FieldMargin:
		return &f.Margin, nil
	case FieldGlyph:
		return &f.Glyph, nil
	case FieldCaptionTop:
		return &f.CaptionTop, nil
	case FieldCaptionBottom:
		return &f.CaptionBottom, nil
	case FieldPadding:
		return &f.Padding, nil
	case FieldFormat:
		return &f.Format, nil
	}
	return nil, newError(CodeUnknownField, fmt.Sprintf("unknown field %q", name), nil)
}

// Set assigns value to the named field.
func (f *FormState) Set(name Field, value string) error {
	p, err := f.field(name)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// Get returns the named field's value.
func (f *FormState) Get(name Field) (string, error) {
	p, err := f.field(name)
	if err != nil {
		return "", err
	}
	return *p, nil
}
