package ai

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeProfileCoercesLists(t *testing.T) {
	p, err := decodeProfile(`{"name":" Ann ","email":"ann@x.io","skills":["Go"," Rust "],"education":null,"location":"null"}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Ann" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Skills == nil || *p.Skills != "Go, Rust" {
		t.Errorf("Skills = %v", p.Skills)
	}
	if p.Education != nil {
		t.Errorf("Education should be nil, got %q", *p.Education)
	}
}
