package toggler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/smazurov/toggler/internal/resource"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		attrs    resource.Attributes
		wantCode string
		wantAttr string
	}{
		{
			name:     "missing board_name",
			attrs:    resource.Attributes{"pin": "11"},
			wantCode: ErrCodeMissingAttribute,
			wantAttr: AttrBoardName,
		},
		{
			name:     "board_name wrong type",
			attrs:    resource.Attributes{"board_name": 7, "pin": "11"},
			wantCode: ErrCodeWrongType,
			wantAttr: AttrBoardName,
		},
		{
			name:     "board_name empty",
			attrs:    resource.Attributes{"board_name": "", "pin": "11"},
			wantCode: ErrCodeEmptyValue,
			wantAttr: AttrBoardName,
		},
		{
			name:     "missing pin",
			attrs:    resource.Attributes{"board_name": "local"},
			wantCode: ErrCodeMissingAttribute,
			wantAttr: AttrPin,
		},
		{
			name:     "pin wrong type",
			attrs:    resource.Attributes{"board_name": "local", "pin": 11},
			wantCode: ErrCodeWrongType,
			wantAttr: AttrPin,
		},
		{
			name:     "pin empty",
			attrs:    resource.Attributes{"board_name": "local", "pin": ""},
			wantCode: ErrCodeEmptyValue,
			wantAttr: AttrPin,
		},
		{
			name:     "board_name checked before pin",
			attrs:    resource.Attributes{"board_name": "", "pin": 3.5},
			wantCode: ErrCodeEmptyValue,
			wantAttr: AttrBoardName,
		},
		{
			name:     "nothing set",
			attrs:    nil,
			wantCode: ErrCodeMissingAttribute,
			wantAttr: AttrBoardName,
		},
		{
			name:     "serialize_toggles wrong type",
			attrs:    resource.Attributes{"board_name": "local", "pin": "11", "serialize_toggles": "yes"},
			wantCode: ErrCodeWrongType,
			wantAttr: AttrSerializeToggles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			required, optional, err := Validate(tt.attrs)
			if err == nil {
				t.Fatalf("Validate() succeeded, want %s", tt.wantCode)
			}
			if required != nil || optional != nil {
				t.Errorf("Validate() returned dependencies %v %v on failure", required, optional)
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Validate() error %T is not *Error", err)
			}
			if e.Code != tt.wantCode || e.Attribute != tt.wantAttr {
				t.Errorf("Validate() error = %s/%s, want %s/%s", e.Code, e.Attribute, tt.wantCode, tt.wantAttr)
			}
			if e.Kind() != KindConfigValidation {
				t.Errorf("Kind() = %s, want %s", e.Kind(), KindConfigValidation)
			}
		})
	}
}

func TestValidate_Success(t *testing.T) {
	attrs := resource.Attributes{
		"board_name":        "local",
		"pin":               "11",
		"serialize_toggles": true,
		"unrelated":         42,
	}

	required, optional, err := Validate(attrs)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !reflect.DeepEqual(required, []string{"local"}) {
		t.Errorf("required = %v, want [local]", required)
	}
	if optional == nil || len(optional) != 0 {
		t.Errorf("optional = %#v, want empty slice", optional)
	}
}

func TestValidate_ErrorsIs(t *testing.T) {
	_, _, err := Validate(resource.Attributes{"board_name": "local"})

	if !errors.Is(err, ErrMissingAttribute) {
		t.Error("errors.Is(err, ErrMissingAttribute) = false")
	}
	if !errors.Is(err, MissingAttribute(AttrPin)) {
		t.Error("errors.Is(err, MissingAttribute(pin)) = false")
	}
	if errors.Is(err, MissingAttribute(AttrBoardName)) {
		t.Error("errors.Is(err, MissingAttribute(board_name)) = true, want false")
	}
	if CodeOf(err) != ErrCodeMissingAttribute {
		t.Errorf("CodeOf() = %q", CodeOf(err))
	}
}

func TestParseConfig(t *testing.T) {
	cfg := parseConfig(resource.Attributes{"board_name": "local", "pin": "11", "serialize_toggles": true})
	want := Config{BoardName: "local", Pin: "11", SerializeToggles: true}
	if cfg != want {
		t.Errorf("parseConfig() = %+v, want %+v", cfg, want)
	}
}
