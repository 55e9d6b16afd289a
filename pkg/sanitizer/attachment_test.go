package sanitizer

import (
	"testing"

	"intake/pkg/model"
)

func TestNormalizeAttachment(t *testing.T) {
	got := NormalizeAttachment(model.Attachment{
		Name:        "  exame   sangue.pdf ",
		ContentType: " Application/PDF; charset=binary",
		URL:         " https://files.example.com/1 ",
		SizeBytes:   42,
	})

	want := model.Attachment{
		Name:        "exame sangue.pdf",
		ContentType: "application/pdf",
		URL:         "https://files.example.com/1",
		SizeBytes:   42,
	}
	if got != want {
		t.Errorf("NormalizeAttachment() = %+v, want %+v", got, want)
	}
	if NormalizeAttachment(got) != got {
		t.Error("NormalizeAttachment is not idempotent")
	}
}

func TestNormalizeAttachments(t *testing.T) {
	tests := []struct {
		name  string
		input []model.Attachment
		want  []string
	}{
		{"nil stays nil", nil, nil},
		{"empty", []model.Attachment{}, []string{}},
		{
			"dedupes by normalized name",
			[]model.Attachment{{Name: "rg.jpg"}, {Name: " rg.jpg"}, {Name: "cpf.jpg"}},
			[]string{"rg.jpg", "cpf.jpg"},
		},
		{
			"keeps unnamed entries for validation",
			[]model.Attachment{{Name: ""}, {Name: ""}},
			[]string{"", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAttachments(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d attachments, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("attachment %d name = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}
