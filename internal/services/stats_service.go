package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchers-org/couchers-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrInvalidWindow = errors.New("window must be at least one day")
)

const day = 24 * time.Hour

// SeriesPoint is one sample of a daily time series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) joinDates() ([]time.Time, error) {
	var joined []time.Time
	if err := s.db.Model(&models.User{}).Order("joined ASC").Pluck("joined", &joined).Error; err != nil {
		return nil, fmt.Errorf("failed to load join dates: %w", err)
	}
	for i := range joined {
		joined[i] = joined[i].UTC().Truncate(day)
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].Before(joined[j]) })
	return joined, nil
}

// SignupsPerDay returns, for every day between the first and last signup, the
// number of signups in the trailing window divided by the window length.
func (s *StatsService) SignupsPerDay(windowDays int) ([]SeriesPoint, error) {
	if windowDays < 1 {
		return nil, ErrInvalidWindow
	}

	joined, err := s.joinDates()
	if err != nil || len(joined) == 0 {
		return nil, err
	}

	perDay := make(map[time.Time]int, len(joined))
	for _, d := range joined {
		perDay[d]++
	}

	first, last := joined[0], joined[len(joined)-1]
	var (
		series  []SeriesPoint
		running int
	)
	for d := first; !d.After(last); d = d.Add(day) {
		running += perDay[d]
		if drop := d.Add(-time.Duration(windowDays) * day); !drop.Before(first) {
			running -= perDay[drop]
		}
		series = append(series, SeriesPoint{Date: d, Value: float64(running) / float64(windowDays)})
	}
	return series, nil
}

// CumulativeUsers samples the total number of users every sampleDays days,
// starting at the first signup and always ending with the latest one.
func (s *StatsService) CumulativeUsers(sampleDays int) ([]SeriesPoint, error) {
	if sampleDays < 1 {
		return nil, ErrInvalidWindow
	}

	joined, err := s.joinDates()
	if err != nil || len(joined) == 0 {
		return nil, err
	}

	first, last := joined[0], joined[len(joined)-1]
	step := time.Duration(sampleDays) * day

	var series []SeriesPoint
	idx := 0
	for d := first; ; d = d.Add(step) {
		if d.After(last) {
			d = last
		}
		for idx < len(joined) && !joined[idx].After(d) {
			idx++
		}
		series = append(series, SeriesPoint{Date: d, Value: float64(idx)})
		if !d.Before(last) {
			break
		}
	}
	return series, nil
}

// TableColumns lists the column names of a table, in schema order.
func (s *StatsService) TableColumns(table string) ([]string, error) {
	migrator := s.db.Migrator()
	if !migrator.HasTable(table) {
		return nil, ErrUnknownTable
	}

	columnTypes, err := migrator.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		names[i] = ct.Name()
	}
	return names, nil
}
