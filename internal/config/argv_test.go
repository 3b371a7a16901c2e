package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgvWords(t *testing.T) {
	tests := map[string]struct {
		input string
		want  []string
	}{
		"blank":                   {input: "  \t ", want: nil},
		"disabled":                {input: "# wl-copy --trim-newline", want: nil},
		"plain words":             {input: "wl-copy --trim-newline", want: []string{"wl-copy", "--trim-newline"}},
		"mixed whitespace":        {input: "paplay\t--volume 40000\n/tmp/cue.wav", want: []string{"paplay", "--volume", "40000", "/tmp/cue.wav"}},
		"double quoted":           {input: `notify-send "habla ready"`, want: []string{"notify-send", "habla ready"}},
		"single quoted":           {input: `notify-send 'habla ready'`, want: []string{"notify-send", "habla ready"}},
		"quote joins word":        {input: `a "b c"d`, want: []string{"a", "b cd"}},
		"escaped space":           {input: `cat my\ file`, want: []string{"cat", "my file"}},
		"escaped quote":           {input: `mycmd \"x`, want: []string{"mycmd", `"x`}},
		"escaped quote in quotes": {input: `mycmd "say \"hi\""`, want: []string{"mycmd", `say "hi"`}},
		"backslash in single":     {input: `mycmd 'a\b'`, want: []string{"mycmd", `a\b`}},
		"apostrophe splice":       {input: `echo 'it'\''s'`, want: []string{"echo", "it's"}},
		"empty quoted word":       {input: `mycmd '' x`, want: []string{"mycmd", "", "x"}},
		"only empty quotes":       {input: `""`, want: []string{""}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseArgvRejectsUnterminatedInput(t *testing.T) {
	for input, want := range map[string]string{
		`mycmd "oops`:   "unterminated quote",
		`mycmd 'oops`:   "unterminated quote",
		`mycmd hello\`:  "unterminated escape",
		`mycmd "a\`:     "unterminated escape",
		`mycmd 'a\' b"`: "unterminated quote",
	} {
		_, err := parseArgv(input)
		require.ErrorContains(t, err, want, "input=%q", input)
	}

	require.Panics(t, func() {
		_ = mustParseArgv(`mycmd "unterminated`)
	})
}
