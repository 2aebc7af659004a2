package service

import (
	"context"
	"time"

	"Forum_Community/internal/model"
	"Forum_Community/internal/repository/mysql"
)

// DayCount 某一天（UTC）的数量
type DayCount struct {
	Day      string `json:"day"`
	Posts    int64  `json:"posts"`
	Comments int64  `json:"comments"`
}

type Report struct {
	EventsByType map[string]int64 `json:"events_by_type"`
	Daily        []DayCount       `json:"daily"`
}

type MetricsService struct {
	store *mysql.Store
}

func NewMetricsService(store *mysql.Store) *MetricsService {
	return &MetricsService{store: store}
}

// Report 统计全部事件类型，以及最近 days 天的发帖与评论数
func (s *MetricsService) Report(ctx context.Context, days int, now time.Time) (*Report, error) {
	if days <= 0 {
		days = 7
	}
	events := make(map[string]int64)
	err := s.store.Outbox.Scan(ctx, 500, func(batch []model.EventOutbox) error {
		for _, ob := range batch {
			events[ob.EventType]++
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, "event")
	}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	byDay := make(map[string]*DayCount, days)
	daily := make([]DayCount, 0, days)
	for d := 0; d < days; d++ {
		daily = append(daily, DayCount{Day: start.AddDate(0, 0, d).Format(time.DateOnly)})
	}
	for i := range daily {
		byDay[daily[i].Day] = &daily[i]
	}

	posts, err := s.store.Posts.CreatedSince(ctx, start)
	if err != nil {
		return nil, dbError(err, "post")
	}
	for _, t := range posts {
		if dc, ok := byDay[t.UTC().Format(time.DateOnly)]; ok {
			dc.Posts++
		}
	}
	comments, err := s.store.Comments.CreatedSince(ctx, start)
	if err != nil {
		return nil, dbError(err, "comment")
	}
	for _, t := range comments {
		if dc, ok := byDay[t.UTC().Format(time.DateOnly)]; ok {
			dc.Comments++
		}
	}
	return &Report{EventsByType: events, Daily: daily}, nil
}
