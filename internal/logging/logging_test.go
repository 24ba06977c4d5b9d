package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_Levels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"bogus": zerolog.InfoLevel,
	}
	for level, want := range cases {
		for _, format := range []string{"text", "json"} {
			if got := Setup(format, level).GetLevel(); got != want {
				t.Errorf("Setup(%q, %q) level = %v, want %v", format, level, got, want)
			}
		}
	}
}
