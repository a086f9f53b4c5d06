package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/archive"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/generator"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/logger"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/normalize"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/prompt"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/validate"
)

const goodOutput = "```json\n" + `{
  "id": "generator-made-this-up",
  "date": "1999-12-31",
  "titles": {"ja": "円安が進む", "en": "The yen weakens"},
  "contents": {"ja": "本文", "en": "Body"},
  "mermaid": {"ja": "graph TD\nA-->B", "en": "graph TD\nA-->B"},
  "glossary": [{"term": {"ja": "円安", "en": "weak yen"}, "def": {"ja": "円の価値が下がること", "en": "The yen losing value"}}]
}` + "\n```"

var fixedNow = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }

type mirrorStub struct {
	saved    []model.Entry
	fallback []bool
	err      error
}

func (m *mirrorStub) SaveEntry(_ context.Context, e model.Entry, fallback bool) error {
	m.saved = append(m.saved, e)
	m.fallback = append(m.fallback, fallback)
	return m.err
}

func newEngine(t *testing.T, gen generator.Generator, mutate func(*Options)) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs", "data.json")
	opts := Options{
		Now:         fixedNow,
		Location:    time.FixedZone("UTC+9", 9*3600),
		ArchivePath: path,
		Policy:      config.PolicyFallback,
		Generator:   gen,
		Prompt:      prompt.NewBuilder(false),
		Log:         logger.Discard(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e, path
}

func failing(err error) generator.Generator {
	return generator.Func(func(context.Context, string, generator.Options) (string, error) {
		return "", err
	})
}

func TestRun_HappyPath(t *testing.T) {
	mirror := &mirrorStub{}
	e, path := newEngine(t, generator.Static{Text: goodOutput}, func(o *Options) { o.Mirror = mirror })

	out, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	assert.Nil(t, out.Failure)
	assert.Equal(t, Trace{StateIdle, StateGenerating, StateExtracting, StateNormalizing, StateValidating, StateMerging, StatePersisted}, out.Trace)

	// 身份字段以调用方为准
	assert.Equal(t, "20250401_090000", out.Entry.ID)
	assert.Equal(t, "2025-04-01", out.Entry.Date)
	assert.Contains(t, out.Anomalies, normalize.AnomalyIdentityOverridden)
	assert.Equal(t, "円安", out.Entry.Glossary[0].Term.JA)

	h := archive.Load(path).History
	require.Len(t, h, 1)
	assert.Equal(t, out.Entry, h[0])

	require.Len(t, mirror.saved, 1)
	assert.False(t, mirror.fallback[0])
}

func TestRun_GenerationFailureFallsBack(t *testing.T) {
	e, path := newEngine(t, failing(errors.New("quota exhausted")), nil)

	out, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	require.NotNil(t, out.Failure)
	assert.Equal(t, KindGeneration, out.Failure.Kind)
	assert.Equal(t, Trace{StateIdle, StateGenerating, StateFailed, StateMerging, StatePersisted}, out.Trace)

	fb := out.Entry
	assert.Equal(t, "分析エラー", fb.Titles.JA)
	assert.Equal(t, "Error", fb.Titles.EN)
	assert.Contains(t, fb.Contents.JA, "現在データを生成できません。")
	assert.Contains(t, fb.Contents.JA, "quota exhausted")
	assert.Equal(t, "graph TD\nError", fb.Mermaid.EN)
	assert.NotNil(t, fb.Glossary)
	assert.True(t, validate.Validate(fb).OK(), "fallback entry must itself be valid")

	require.Len(t, archive.Load(path).History, 1)
}

func TestRun_FallbackUsesConfiguredTitle(t *testing.T) {
	e, _ := newEngine(t, failing(errors.New("x")), func(o *Options) {
		o.ErrorTitle = model.LocalizedText{JA: "エラー", EN: "Failure"}
	})
	out, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.LocalizedText{JA: "エラー", EN: "Failure"}, out.Entry.Titles)
}

func TestRun_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"prose", "Sorry, I could not find any news today."},
		{"broken json", "{\"titles\": {\"ja\": }"},
		{"empty list", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, generator.Static{Text: tt.output}, nil)
			out, err := e.Run(context.Background())
			require.NoError(t, err)
			require.True(t, out.Fallback)
			assert.Equal(t, KindExtraction, out.Failure.Kind)
		})
	}
}

func TestRun_ValidationFailureFallsBack(t *testing.T) {
	bad := `{"titles": {"ja": "円安", "en": ""}, "contents": {"ja": "a", "en": "b"}}`
	e, path := newEngine(t, generator.Static{Text: bad}, nil)

	out, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	require.NotNil(t, out.Failure)
	assert.Equal(t, KindValidation, out.Failure.Kind)
	assert.Equal(t, Trace{StateIdle, StateGenerating, StateExtracting, StateNormalizing, StateValidating, StateFailed, StateMerging, StatePersisted}, out.Trace)

	assert.Equal(t, "分析エラー", out.Entry.Titles.JA)
	assert.Contains(t, out.Entry.Contents.EN, "titles.en")
	assert.True(t, validate.Validate(out.Entry).OK())

	h := archive.Load(path).History
	require.Len(t, h, 1)
	assert.Equal(t, out.Entry, h[0])
}

func TestRun_FailFastLeavesArchiveUntouched(t *testing.T) {
	bad := `{"titles": {"ja": "円安", "en": ""}, "contents": {"ja": "a", "en": "b"}}`
	e, path := newEngine(t, generator.Static{Text: bad}, func(o *Options) { o.Policy = config.PolicyFailFast })

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	before := []byte("[\n  {\"id\": \"old\"}\n]\n")
	require.NoError(t, os.WriteFile(path, before, 0o644))

	out, err := e.Run(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, kind)
	assert.Equal(t, StateFailed, out.Trace.Last())

	var vs validate.Violations
	require.True(t, errors.As(err, &vs))
	assert.Equal(t, "titles.en", vs[0].Field)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_Timeout(t *testing.T) {
	slow := generator.Func(func(ctx context.Context, _ string, _ generator.Options) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e, _ := newEngine(t, slow, func(o *Options) { o.GenOptions.Timeout = 20 * time.Millisecond })

	out, err := e.Run(context.Background())
	require.NoError(t, err)
	require.True(t, out.Fallback)
	assert.Equal(t, KindGeneration, out.Failure.Kind)
	assert.ErrorIs(t, out.Failure, context.DeadlineExceeded)
	assert.Contains(t, out.Entry.Contents.EN, "timed out")
}

func TestRun_PassesSearchOptions(t *testing.T) {
	var got generator.Options
	var gotPrompt string
	gen := generator.Func(func(_ context.Context, p string, o generator.Options) (string, error) {
		got, gotPrompt = o, p
		return goodOutput, nil
	})
	e, _ := newEngine(t, gen, func(o *Options) {
		o.GenOptions = generator.Options{EnableSearch: true, ResponseFormat: generator.FormatJSON, Temperature: 0.1}
	})

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, got.EnableSearch)
	assert.Equal(t, generator.FormatJSON, got.ResponseFormat)
	assert.Equal(t, "2025-04-01", got.Date)
	assert.Contains(t, gotPrompt, "20250401_090000")
}

func TestRun_CapAndOrder(t *testing.T) {
	e, path := newEngine(t, generator.Static{Text: goodOutput}, func(o *Options) { o.Cap = 3 })

	var h model.History
	for _, id := range []string{"c", "b", "a"} {
		h = append(h, model.Entry{ID: id, Date: "2025-01-01", Glossary: []model.GlossaryTerm{}})
	}
	require.NoError(t, archive.Persist(path, h))

	out, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, out.ArchiveLen)

	got := archive.Load(path).History
	require.Len(t, got, 3)
	assert.Equal(t, []string{"20250401_090000", "c", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestRun_ResetMode(t *testing.T) {
	e, path := newEngine(t, generator.Static{Text: goodOutput}, func(o *Options) { o.Mode = config.ModeReset })
	require.NoError(t, archive.Persist(path, model.History{{ID: "old", Glossary: []model.GlossaryTerm{}}}))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	got := archive.Load(path).History
	require.Len(t, got, 1)
	assert.Equal(t, "20250401_090000", got[0].ID)
}

func TestRun_RecoversCorruptArchive(t *testing.T) {
	e, path := newEngine(t, generator.Static{Text: goodOutput}, func(o *Options) { o.Lock = true })
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not json {{"), 0o644))

	out, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Load.Recovered)
	assert.Len(t, archive.Load(path).History, 1)
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "docs")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))

	e, err := New(Options{
		Now:         fixedNow,
		ArchivePath: filepath.Join(blocker, "data.json"),
		Generator:   failing(errors.New("down")),
		Prompt:      prompt.NewBuilder(false),
		Log:         logger.Discard(),
	})
	require.NoError(t, err)

	out, err := e.Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindPersistence, kind)
	assert.Equal(t, StateFailed, out.Trace.Last())
}

func TestRun_MirrorFailureIsNotFatal(t *testing.T) {
	mirror := &mirrorStub{err: errors.New("db down")}
	e, _ := newEngine(t, failing(errors.New("x")), func(o *Options) { o.Mirror = mirror })

	out, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, out.Trace.Last())
	require.Len(t, mirror.fallback, 1)
	assert.True(t, mirror.fallback[0])
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Prompt: prompt.NewBuilder(false), ArchivePath: "x"})
	assert.Error(t, err)
	_, err = New(Options{Generator: generator.Static{}, ArchivePath: "x"})
	assert.Error(t, err)
	_, err = New(Options{Generator: generator.Static{}, Prompt: prompt.NewBuilder(false)})
	assert.Error(t, err)
}
