package repository

import (
	"context"
	"time"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	pkgkafka "CryptoSign/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher for Kafka. Calendar messages are
// keyed by date so a day's signal lands on a stable partition.
type KafkaSignalPublisher struct {
	producer     *pkgkafka.Producer
	signalsTopic string
	reportsTopic string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

// NewKafkaSignalPublisher creates Kafka publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, signalsTopic, reportsTopic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, signalsTopic: signalsTopic, reportsTopic: reportsTopic}
}

type calendarMessage struct {
	Date           string                   `json:"date"`
	Classification models.DayClassification `json:"classification"`
	Direction      models.Direction         `json:"direction,omitempty"`
	Hours          []int                    `json:"hours"`
	DayCode        int                      `json:"day_code"`
	FullCode       int                      `json:"full_code"`
	Anchored       int                      `json:"anchored"`
}

func (p *KafkaSignalPublisher) PublishCalendar(ctx context.Context, records []models.SignalRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, rec := range records {
		date := rec.Date.Format(time.DateOnly)
		m := calendarMessage{
			Date:           date,
			Classification: rec.Classification,
			Hours:          []int{},
			DayCode:        rec.Codes.DayCode,
			FullCode:       rec.Codes.FullCode,
			Anchored:       rec.Codes.AnchoredCode,
		}
		if dir, hours, ok := rec.Signal(); ok {
			m.Direction = dir
			for _, h := range hours {
				m.Hours = append(m.Hours, h.Hour)
			}
		}
		msgs[i] = pkgkafka.Message{Key: []byte(date), Value: m}
	}
	return p.producer.PublishBatch(ctx, p.signalsTopic, msgs)
}

// PublishReport sends the summary only; the full ledger stays in ClickHouse.
func (p *KafkaSignalPublisher) PublishReport(ctx context.Context, r models.BacktestReport) error {
	return p.producer.Publish(ctx, p.reportsTopic, []byte(r.RunID), map[string]interface{}{
		"run_id":     r.RunID,
		"symbol":     r.Symbol,
		"mode":       r.Mode,
		"from":       r.From.Format(time.DateOnly),
		"to":         r.To.Format(time.DateOnly),
		"trades":     r.Summary.TotalTrades,
		"win_rate":   r.Summary.WinRate,
		"cumulative": r.Summary.CumulativeReturn,
		"drawdown":   r.Summary.MaxDrawdown,
		"open":       len(r.Result.Open),
		"created_at": r.CreatedAt,
	})
}
