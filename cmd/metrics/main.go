package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"Forum_Community/internal/config"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	"Forum_Community/internal/service"

	"github.com/charmbracelet/log"
)

// 打印事件统计与最近几天的发帖、评论数
func main() {
	days := flag.Int("days", 7, "number of days to report, ending today (UTC)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg := config.Load()
	pkg.InitLogger(cfg.LogLevel)

	db, err := mysql.InitDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", "driver", cfg.DBDriver, "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	report, err := service.NewMetricsService(mysql.NewStore(db)).Report(ctx, *days, time.Now())
	if err != nil {
		log.Fatal("build report failed", "err", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal("encode report failed", "err", err)
		}
		return
	}

	types := make([]string, 0, len(report.EventsByType))
	for t := range report.EventsByType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Println("events by type:")
	for _, t := range types {
		fmt.Printf("  %-20s %d\n", t, report.EventsByType[t])
	}
	fmt.Println("daily:")
	fmt.Printf("  %-12s %8s %8s\n", "day", "posts", "comments")
	for _, d := range report.Daily {
		fmt.Printf("  %-12s %8d %8d\n", d.Day, d.Posts, d.Comments)
	}
}
