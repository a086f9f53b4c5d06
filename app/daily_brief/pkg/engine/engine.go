package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/archive"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/extract"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/generator"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/normalize"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/validate"
)

// 兜底条目的固定内容
const (
	fallbackContentJA = "現在データを生成できません。"
	fallbackContentEN = "Error."
	fallbackMermaid   = "graph TD\nError"
)

// Prompter 渲染生成器指令
type Prompter interface {
	Build(stamp model.Stamp) (string, error)
}

// Mirror 持久化之后的可选镜像写入，失败不影响结果
type Mirror interface {
	SaveEntry(ctx context.Context, e model.Entry, fallback bool) error
}

// Options 一次运行所需的全部依赖
type Options struct {
	Now         func() time.Time
	Location    *time.Location
	ArchivePath string
	Cap         int
	Mode        string
	Policy      string
	Lock        bool
	ErrorTitle  model.LocalizedText

	Generator  generator.Generator
	GenOptions generator.Options
	Prompt     Prompter
	Mirror     Mirror
	Log        logrus.FieldLogger
}

// Outcome 一次运行的结果
type Outcome struct {
	Entry    model.Entry
	Fallback bool
	// Failure 触发兜底的原因，正常生成时为 nil
	Failure         *Failure
	Trace           Trace
	Anomalies       []normalize.Anomaly
	DroppedGlossary int
	Unbalanced      bool
	Load            archive.LoadResult
	ArchiveLen      int
}

// Engine 流水线驱动
type Engine struct {
	opts  Options
	store *archive.Store
	log   logrus.FieldLogger
}

// New 创建引擎实例
func New(opts Options) (*Engine, error) {
	if opts.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if opts.Prompt == nil {
		return nil, errors.New("engine: prompt builder is required")
	}
	if opts.ArchivePath == "" {
		return nil, errors.New("engine: archive path is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.FixedZone("UTC+9", 9*3600)
	}
	if opts.Cap <= 0 {
		opts.Cap = archive.DefaultCap
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeAccumulate
	}
	if opts.Policy == "" {
		opts.Policy = config.PolicyFallback
	}
	if opts.ErrorTitle.JA == "" {
		opts.ErrorTitle.JA = "分析エラー"
	}
	if opts.ErrorTitle.EN == "" {
		opts.ErrorTitle.EN = "Error"
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		opts:  opts,
		store: archive.NewStore(opts.ArchivePath, log),
		log:   log,
	}, nil
}

// Run 执行一次生成并写入归档
// fail_fast 策略下的失败和持久化失败会返回 *Failure，其余情况都会落盘。
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Trace: Trace{StateIdle}}
	stamp := model.NewStamp(e.opts.Now(), e.opts.Location)
	log := e.log.WithField("id", stamp.ID)
	log.Infof("开始生成 %s 的解说", stamp.Date)

	entry, f := e.produce(ctx, stamp, out)
	if f != nil {
		log.WithField("kind", f.Kind).Errorf("生成失败: %v", f.Err)
		out.Trace = append(out.Trace, StateFailed)
		out.Failure = f
		if e.opts.Policy == config.PolicyFailFast {
			return out, f
		}
		// 兜底条目从 Failed 继续进入 Merging
		entry = e.fallbackEntry(stamp, f)
		out.Fallback = true
		log.Warn("使用兜底条目继续写入归档")
	}
	out.Entry = entry

	out.Trace = append(out.Trace, StateMerging)
	if f := e.persist(ctx, entry, out); f != nil {
		out.Trace = append(out.Trace, StateFailed)
		log.Errorf("写入归档失败: %v", f.Err)
		return out, f
	}
	out.Trace = append(out.Trace, StatePersisted)
	log.WithFields(logrus.Fields{"entries": out.ArchiveLen, "fallback": out.Fallback}).
		Infof("归档完成: %s", entry.Titles.JA)

	if e.opts.Mirror != nil {
		if err := e.opts.Mirror.SaveEntry(ctx, entry, out.Fallback); err != nil {
			log.Warnf("写入镜像数据库失败: %v", err)
		}
	}
	return out, nil
}

// produce 生成 → 提取 → 归一化 → 校验
func (e *Engine) produce(ctx context.Context, stamp model.Stamp, out *Outcome) (model.Entry, *Failure) {
	out.Trace = append(out.Trace, StateGenerating)
	text, err := e.generate(ctx, stamp)
	if err != nil {
		return model.Entry{}, fail(KindGeneration, err)
	}

	out.Trace = append(out.Trace, StateExtracting)
	cand, err := extract.Extract(text)
	if err != nil {
		return model.Entry{}, fail(KindExtraction, err)
	}
	if cand.Unbalanced {
		out.Unbalanced = true
		e.log.WithField("id", stamp.ID).Warn("候选 JSON 括号不平衡，解析结果需要人工确认")
	}
	v, err := normalize.Parse(cand.Text)
	if err != nil {
		return model.Entry{}, fail(KindExtraction, err)
	}

	out.Trace = append(out.Trace, StateNormalizing)
	res, err := normalize.Normalize(v, stamp)
	if err != nil {
		return model.Entry{}, fail(KindExtraction, err)
	}
	out.Anomalies = res.Anomalies
	if len(res.Anomalies) > 0 {
		e.log.WithFields(logrus.Fields{"id": stamp.ID, "anomalies": res.Anomalies}).Warn("生成结果结构不规范，已自动修正")
	}

	out.Trace = append(out.Trace, StateValidating)
	vr := validate.Validate(res.Entry)
	out.DroppedGlossary = vr.DroppedGlossary
	if vr.DroppedGlossary > 0 {
		e.log.WithFields(logrus.Fields{"id": stamp.ID, "dropped": vr.DroppedGlossary}).Warn("丢弃不完整的术语条目")
	}
	if !vr.OK() {
		return model.Entry{}, fail(KindValidation, vr.Err())
	}
	return vr.Entry, nil
}

func (e *Engine) generate(ctx context.Context, stamp model.Stamp) (string, error) {
	prompt, err := e.opts.Prompt.Build(stamp)
	if err != nil {
		return "", err
	}

	gopts := e.opts.GenOptions
	gopts.Date = stamp.Date
	if gopts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gopts.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := e.opts.Generator.Generate(ctx, prompt, gopts)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", gopts.Timeout, err)
		}
		return "", err
	}
	e.log.WithFields(logrus.Fields{"id": stamp.ID, "elapsed": time.Since(start).Round(time.Millisecond), "bytes": len(text)}).
		Debug("生成器已返回")
	return text, nil
}

func (e *Engine) persist(ctx context.Context, entry model.Entry, out *Outcome) *Failure {
	if e.opts.Lock {
		lock, err := archive.Acquire(ctx, e.opts.ArchivePath)
		if err != nil {
			return fail(KindPersistence, err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				e.log.Warnf("释放归档锁失败: %v", err)
			}
		}()
	}

	var merged model.History
	if e.opts.Mode == config.ModeReset {
		merged = model.History{entry}
	} else {
		out.Load = e.store.Load()
		merged = archive.Merge(out.Load.History, entry, e.opts.Cap)
	}

	if err := e.store.Persist(merged); err != nil {
		return fail(KindPersistence, err)
	}
	out.ArchiveLen = len(merged)
	return nil
}

func (e *Engine) fallbackEntry(stamp model.Stamp, f *Failure) model.Entry {
	entry := model.Entry{
		Titles: model.LocalizedText{JA: e.opts.ErrorTitle.JA, EN: e.opts.ErrorTitle.EN},
		Contents: model.LocalizedText{
			JA: fallbackContentJA + "\n\n" + f.Error(),
			EN: fallbackContentEN + "\n\n" + f.Error(),
		},
		Mermaid:  model.LocalizedText{JA: fallbackMermaid, EN: fallbackMermaid},
		Glossary: []model.GlossaryTerm{},
	}
	stamp.Apply(&entry)
	return entry
}
