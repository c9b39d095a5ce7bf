package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mmp/flagsync/internal/business/anomaly"
	"mmp/flagsync/internal/business/exclusion"
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/pkg/config"
	"mmp/flagsync/pkg/infra/mysql"
	"mmp/flagsync/pkg/infra/redis"
	"mmp/flagsync/pkg/logger"
)

var (
	configPath  = flag.String("config", "./config/worker.yaml", "配置文件路径")
	datasetPath = flag.String("dataset", "", "周度投放/销售 CSV 路径（品牌排除分析）")
	seriesPath  = flag.String("series", "", "渠道时间序列 CSV 路径（异常检测）")
	relevantL2  = flag.String("relevant", "", "相关 L2 子品类（逗号分隔，为空用候选 Relevant=YES）")
	skipDB      = flag.Bool("skip-db", false, "跳过数据库操作（仅测试业务逻辑）")
)

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - FLAGSYNC 引擎快速测试工具")
	fmt.Println("========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Config loaded: %s\n", cfg.App.Name)

	if *datasetPath == "" && *seriesPath == "" {
		fmt.Println("❌ At least one of -dataset / -series is required")
		os.Exit(1)
	}

	failures := 0

	if *datasetPath != "" {
		if err := runExclusion(cfg, *datasetPath, *relevantL2, *skipDB); err != nil {
			fmt.Printf("❌ Exclusion FAILED: %v\n", err)
			failures++
		} else {
			fmt.Println("✅ Exclusion PASSED")
		}
	}

	if *seriesPath != "" {
		if err := runAnomaly(cfg, *seriesPath, *skipDB); err != nil {
			fmt.Printf("❌ Anomaly FAILED: %v\n", err)
			failures++
		} else {
			fmt.Println("✅ Anomaly PASSED")
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// runExclusion 跑两阶段品牌排除分析
func runExclusion(cfg *config.Config, path, relevantArg string, skip bool) error {
	fmt.Println("\n========================================")
	fmt.Println("  Exclusion Engine")
	fmt.Println("========================================")

	startTime := time.Now()

	raw, err := exclusion.LoadDataset(path, exclusion.DefaultColumnMapping())
	if err != nil {
		return fmt.Errorf("load dataset failed: %w", err)
	}
	fmt.Printf("  Rows loaded: %d\n", len(raw))

	normalized := exclusion.Normalize(raw)
	candidates := exclusion.BuildCandidates(normalized)
	fmt.Printf("  L2 candidates: %d\n", len(candidates))

	var relevant []string
	if relevantArg != "" {
		relevant = strings.Split(relevantArg, ",")
	} else {
		for _, c := range candidates {
			if c.Relevant == model.RelevantYes {
				relevant = append(relevant, c.L2)
			}
		}
	}
	relevant, err = exclusion.ValidateRelevantL2(relevant, candidates)
	if err != nil {
		return fmt.Errorf("validate relevant_l2 failed: %w", err)
	}
	fmt.Printf("  Relevant subcategories: %d\n", len(relevant))

	if skip {
		fmt.Println("⚠️  Skip-DB mode: running pivot automation without references")
		flagRows := exclusion.BuildFlagTable(normalized, relevant, nil, exclusion.DefaultAdvExclusions)
		mc := exclusion.NewMatchContext(nil, nil, nil, nil, cfg.Exclusion.EmbedThreshold, cfg.Exclusion.FuzzyThreshold)
		rows := exclusion.RunPivotAutomation(context.Background(), flagRows, mc, &exclusion.MatcherGroupSource{})
		summary := exclusion.Summarize(rows)
		fmt.Printf("  Brands: %d, CombineFlags: %d, ExcludeFlags: %d\n",
			len(rows), summary.CombineFlagCount, summary.ExcludeFlagCount)
		fmt.Printf("⏱️  Duration: %v\n", time.Since(startTime))
		return nil
	}

	svc, closeFn, err := buildExclusionService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := svc.RunFlags(context.Background(), "fasttest", &model.ExclusionFlagsData{
		FileID:     fmt.Sprintf("fasttest-%d", time.Now().Unix()),
		InputPath:  path,
		RelevantL2: relevant,
	})
	if err != nil {
		return err
	}

	fmt.Printf("  Brands: %d, CombineFlags: %d, ExcludeFlags: %d\n",
		len(result.Rows), result.Summary.CombineFlagCount, result.Summary.ExcludeFlagCount)
	for _, w := range result.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}
	fmt.Println("  ✓ Database updated")
	fmt.Println("  ✓ Redis notification sent")
	fmt.Printf("⏱️  Duration: %v\n", time.Since(startTime))
	return nil
}

// runAnomaly 跑媒体投放异常检测
func runAnomaly(cfg *config.Config, path string, skip bool) error {
	fmt.Println("\n========================================")
	fmt.Println("  Anomaly Engine")
	fmt.Println("========================================")

	startTime := time.Now()

	rows, err := anomaly.LoadSeries(path)
	if err != nil {
		return fmt.Errorf("load series failed: %w", err)
	}
	fmt.Printf("  Days loaded: %d\n", len(rows))

	records, severities := anomaly.Finalize(anomaly.Detect(rows))
	fmt.Printf("  Anomalies: %d, Tactics flagged: %d\n", len(records), len(severities))
	for _, s := range severities {
		fmt.Printf("    - %s: count=%d, score=%.2f, band=%s\n", s.Tactic, s.AnomalyCount, s.SeverityScore, s.Band)
	}

	if skip {
		fmt.Println("⚠️  Skip-DB mode: result not persisted")
		fmt.Printf("⏱️  Duration: %v\n", time.Since(startTime))
		return nil
	}

	svc, closeFn, err := buildAnomalyService(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := svc.Run(context.Background(), "fasttest", &model.MediaAnomalyData{
		FileID:    fmt.Sprintf("fasttest-%d", time.Now().Unix()),
		InputPath: path,
	})
	if err != nil {
		return err
	}

	fmt.Printf("  Persisted anomalies: %d\n", len(result.Records))
	fmt.Println("  ✓ Database updated")
	fmt.Println("  ✓ Redis notification sent")
	fmt.Printf("⏱️  Duration: %v\n", time.Since(startTime))
	return nil
}

func buildExclusionService(cfg *config.Config) (*exclusion.Service, func(), error) {
	runDAO, pubsub, log, closeFn, err := buildInfra(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := exclusion.NewService(cfg.Exclusion, runDAO, pubsub, nil, "", nil, log)
	return svc, closeFn, nil
}

func buildAnomalyService(cfg *config.Config) (*anomaly.Service, func(), error) {
	runDAO, pubsub, log, closeFn, err := buildInfra(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := anomaly.NewService(cfg.Anomaly, runDAO, pubsub, nil, "", nil, log)
	return svc, closeFn, nil
}

func buildInfra(cfg *config.Config) (*mysql.RunDAO, *redis.PubSub, logger.Logger, func(), error) {
	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	runDAO, err := mysql.NewRunDAO(cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create run dao: %w", err)
	}

	pubsub, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		runDAO.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to create redis pubsub: %w", err)
	}

	closeFn := func() {
		pubsub.Close()
		runDAO.Close()
	}
	return runDAO, pubsub, log, closeFn, nil
}
