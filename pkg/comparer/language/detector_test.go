package language_test

import (
	"testing"

	"github.com/diffreport/diffreport/pkg/comparer/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnryDetectorNormalizesOverrides(t *testing.T) {
	overrides := map[string]string{
		".foo":   "Foobar",
		"BAR":    "Barlang",
		"":       "emptykey",
		".empty": "",
		".":      "dotlang",
	}
	detector := language.NewEnryDetector(overrides)
	require.NotNil(t, detector)

	lang, conf, err := detector.Detect([]byte("content"), "myfile.foo")
	require.NoError(t, err)
	assert.Equal(t, "foobar", lang)
	assert.Equal(t, 1.0, conf)

	lang, conf, err = detector.Detect([]byte("content"), "file.BAR")
	require.NoError(t, err)
	assert.Equal(t, "barlang", lang)
	assert.Equal(t, 1.0, conf)

	lang, _, err = detector.Detect([]byte("content"), "file.empty")
	require.NoError(t, err)
	assert.Contains(t, []string{"plaintext", "unknown"}, lang)
}

func TestDetect(t *testing.T) {
	detector := language.NewEnryDetector(nil)

	testCases := []struct {
		name         string
		filePath     string
		content      []byte
		expectedLang string
	}{
		{
			name:         "go source by content and name",
			filePath:     "cmd/main.go",
			content:      []byte("package main\n\nfunc main() {}\n"),
			expectedLang: "go",
		},
		{
			name:         "python source",
			filePath:     "script.py",
			content:      []byte("import sys\n\nprint(sys.argv)\n"),
			expectedLang: "python",
		},
		{
			name:         "dockerfile by filename",
			filePath:     "Dockerfile",
			content:      []byte("FROM alpine:3.20\nRUN true\n"),
			expectedLang: "dockerfile",
		},
		{
			name:         "empty content is unknown",
			filePath:     "whatever.go",
			content:      nil,
			expectedLang: "unknown",
		},
		{
			name:         "txt file falls back to plaintext",
			filePath:     "notes.txt",
			content:      []byte("some plain notes without structure"),
			expectedLang: "plaintext",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lang, conf, err := detector.Detect(tc.content, tc.filePath)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedLang, lang)
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
		})
	}
}
