package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/engine"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/generator"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/logger"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/prompt"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/storage"
)

type runFlags struct {
	policy  string
	mode    string
	archive string
	lock    bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "生成一篇解说并合并进归档",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("policy") {
				cfg.Pipeline.Policy = flags.policy
			}
			if cmd.Flags().Changed("mode") {
				cfg.Archive.Mode = flags.mode
			}
			if cmd.Flags().Changed("archive") {
				cfg.Archive.Path = flags.archive
			}
			if cmd.Flags().Changed("lock") {
				cfg.Archive.Lock = flags.lock
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPipeline(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&flags.policy, "policy", "", "失败处理策略: fallback | fail_fast")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "归档模式: accumulate | reset")
	cmd.Flags().StringVar(&flags.archive, "archive", "", "归档文件路径")
	cmd.Flags().BoolVar(&flags.lock, "lock", false, "运行期间对归档加文件锁")
	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return fmt.Errorf("无法初始化日志: %w", err)
	}
	logger.Log.Info("启动每日解说生成...")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := generator.New(ctx, cfg, logger.Log)
	if err != nil {
		return fmt.Errorf("生成器初始化失败: %w", err)
	}
	builder, err := prompt.LoadBuilder(cfg.Pipeline.PromptFile, cfg.Pipeline.WithDescriptions)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Location:    cfg.Pipeline.Location(),
		ArchivePath: cfg.Archive.Path,
		Cap:         cfg.Archive.Cap,
		Mode:        cfg.Archive.Mode,
		Policy:      cfg.Pipeline.Policy,
		Lock:        cfg.Archive.Lock,
		ErrorTitle:  model.LocalizedText{JA: cfg.Pipeline.ErrorTitle.JA, EN: cfg.Pipeline.ErrorTitle.EN},
		Generator:   gen,
		GenOptions: generator.Options{
			EnableSearch:   cfg.LLM.EnableSearch,
			ResponseFormat: cfg.LLM.ResponseFormat,
			Temperature:    cfg.LLM.Temperature,
			Timeout:        cfg.LLM.Timeout(),
		},
		Prompt: builder,
		Log:    logger.Log,
	}

	// 镜像数据库连不上只记录日志，归档文件照常生成
	if cfg.DB.Enabled() {
		store, err := storage.NewStorage(cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 将仅写入归档文件。", err)
		} else {
			defer store.Close()
			opts.Mirror = store
			logger.Log.Info("已成功连接到数据库")
		}
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	out, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	status := "✅ Success"
	if out.Fallback {
		status = "⚠️ Fallback"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s, %d entries)\n", status, out.Entry.Titles.JA, out.Entry.ID, out.ArchiveLen)
	return nil
}
