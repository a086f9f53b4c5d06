package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "daily_brief",
		Short:         "生成日英双语的每日经济解说并写入归档",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "configs/config.yaml", "配置文件路径")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "启动前加载的 .env 文件")

	root.AddCommand(newRunCmd(flags), newCheckCmd(flags))
	return root
}

// loadEnv 加载 .env；默认文件不存在时忽略
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("加载 %s 失败: %w", path, err)
}

// loadConfig 配置文件不存在时使用默认配置
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	if err := loadEnv(flags.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(flags.configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("无法加载配置文件: %w", err)
}
