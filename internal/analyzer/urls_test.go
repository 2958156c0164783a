package analyzer

import "testing"

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "no urls",
			message: "feeling a bit tired today",
			want:    nil,
		},
		{
			name:    "single short link",
			message: "listen to this https://youtu.be/ABC123?x=1",
			want:    []string{"https://youtu.be/ABC123?x=1"},
		},
		{
			name:    "watch url with params",
			message: "https://www.youtube.com/watch?v=XYZ789&t=5 is on repeat",
			want:    []string{"https://www.youtube.com/watch?v=XYZ789&t=5"},
		},
		{
			name:    "multiple urls",
			message: "see http://example.com/a and https://example.org/b?x=%20y",
			want:    []string{"http://example.com/a", "https://example.org/b?x=%20y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.message)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("url %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
