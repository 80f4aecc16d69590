package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LJTian/TrendRadar/internal/app"
	"github.com/LJTian/TrendRadar/internal/config"
	"github.com/LJTian/TrendRadar/internal/logging"
	"github.com/LJTian/TrendRadar/internal/scheduler"
)

var (
	platformsFlag string
	withRSS       bool
	noHotList     bool
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
var rootCmd = &cobra.Command{
	Use:          "collect",
	Short:        "Run one hot list and/or RSS crawl and save it",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if noHotList && !withRSS {
			return errors.New("nothing to do: --no-hotlist without --rss")
		}

		cfg := config.Load()
		selected := selectPlatforms(cfg.Sources.Platforms, platformsFlag)
		if len(selected) == 0 && !noHotList {
			return fmt.Errorf("no configured platform matches %q (configured: %s)",
				platformsFlag, strings.Join(cfg.Sources.PlatformIDs(), ","))
		}
		cfg.Sources.Platforms = selected

		ctx, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer ctx.Close()

		runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logging.Named("collect")
		if !noHotList {
			data, err := ctx.Scheduler.RunOnce(runCtx)
			if err != nil && !errors.Is(err, scheduler.ErrNothingFetched) {
				return err
			}
			if data != nil {
				log.Info().Int("platforms", len(data.Order)).Strs("failed", data.FailedIDs).Msg("hot list saved")
			}
		}
		if withRSS {
			data, err := ctx.Scheduler.RunFeedsOnce(runCtx)
			if err != nil && !errors.Is(err, scheduler.ErrNothingFetched) {
				return err
			}
			if data != nil {
				log.Info().Int("feeds", len(data.Order)).Strs("failed", data.FailedIDs).Msg("feeds saved")
			}
		}
		return nil
	},
}

// selectPlatforms 按 --platforms=a,b 过滤，保持配置中的顺序
func selectPlatforms(all []config.Platform, flag string) []config.Platform {
	if strings.TrimSpace(flag) == "" {
		return all
	}
	want := map[string]bool{}
	for _, id := range strings.Split(flag, ",") {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = true
		}
	}
	var out []config.Platform
	for _, p := range all {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.Flags().StringVar(&platformsFlag, "platforms", "", "Comma separated platform ids to crawl (default: all configured)")
	rootCmd.Flags().BoolVar(&withRSS, "rss", false, "Also crawl configured RSS feeds")
	rootCmd.Flags().BoolVar(&noHotList, "no-hotlist", false, "Skip the hot list crawl")
}

func main() {
	logging.Init(logging.FromEnv())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logging.Get().Error().Err(err).Msg("collect failed")
		os.Exit(1)
	}
}
