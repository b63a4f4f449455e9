package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrAllocationConflict is returned when the counter transaction keeps
// conflicting past the retry budget. No number is consumed in that case.
var ErrAllocationConflict = errors.New("document number allocation conflict")

const allocationRetries = 3

// Period is a caller-supplied year-month. Numbering sequences reset per
// distinct (company, period) key, never globally.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// YYMM renders the period as it appears inside document numbers.
func (p Period) YYMM() string {
	return fmt.Sprintf("%02d%02d", p.Year%100, int(p.Month))
}

// Allocation is one issued document number.
type Allocation struct {
	Sequence int64
	Number   string
}

// NumberingService issues unique, human-readable, monotonically increasing
// document numbers per (company, period, kind). The external format
// <company><YY><MM><INV|PRF><seq %03d> is parsed by other systems and must
// not change.
type NumberingService interface {
	Allocate(ctx context.Context, company, kind string, period Period) (Allocation, error)
	Peek(ctx context.Context, company, kind string, period Period) (string, error)
}

type numberingService struct {
	counters  repository.CounterRepository
	txManager repository.TransactionManager
	log       *logrus.Logger
}

func NewNumberingService(counters repository.CounterRepository, txManager repository.TransactionManager, log *logrus.Logger) NumberingService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &numberingService{counters: counters, txManager: txManager, log: log}
}

func counterKey(company, kind string, period Period) string {
	key := company + "_" + period.YYMM()
	if kind == model.KindProforma {
		key += "_PROFORMA"
	}
	return key
}

func kindTag(kind string) string {
	if kind == model.KindProforma {
		return "PRF"
	}
	return "INV"
}

// FormatNumber renders the external document number for a sequence value.
func FormatNumber(company, kind string, period Period, seq int64) string {
	return fmt.Sprintf("%s%s%s%03d", company, period.YYMM(), kindTag(kind), seq)
}

// Allocate increments the counter for the key inside a transaction and
// returns the formatted number. Conflicting concurrent writers are retried up
// to the budget; exhausting it fails loudly without consuming a number.
// Issued numbers are never reclaimed — an abandoned creation leaves a gap by
// design.
func (s *numberingService) Allocate(ctx context.Context, company, kind string, period Period) (Allocation, error) {
	if !model.IsValidCompany(company) {
		return Allocation{}, fmt.Errorf("unknown company code %q", company)
	}
	if kind != model.KindInvoice && kind != model.KindProforma {
		return Allocation{}, fmt.Errorf("unknown document kind %q", kind)
	}

	key := counterKey(company, kind, period)

	var lastErr error
	for attempt := 1; attempt <= allocationRetries; attempt++ {
		var seq int64
		err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			var incErr error
			seq, incErr = s.counters.Increment(txCtx, key)
			return incErr
		})
		if err == nil {
			return Allocation{Sequence: seq, Number: FormatNumber(company, kind, period, seq)}, nil
		}
		if !isRetryableConflict(err) {
			return Allocation{}, fmt.Errorf("failed to allocate document number for %s: %w", key, err)
		}
		lastErr = err
		s.log.WithFields(logrus.Fields{
			"counter_key": key,
			"attempt":     attempt,
		}).Warn("counter transaction conflict, retrying")
	}

	return Allocation{}, fmt.Errorf("%w for %s after %d attempts: %v", ErrAllocationConflict, key, allocationRetries, lastErr)
}

// Peek returns the number the next successful allocation would produce. It
// reserves nothing: a concurrent allocation can invalidate the preview.
func (s *numberingService) Peek(ctx context.Context, company, kind string, period Period) (string, error) {
	if !model.IsValidCompany(company) {
		return "", fmt.Errorf("unknown company code %q", company)
	}
	count, err := s.counters.Get(ctx, counterKey(company, kind, period))
	if err != nil {
		return "", fmt.Errorf("failed to read counter: %w", err)
	}
	return FormatNumber(company, kind, period, count+1), nil
}

// isRetryableConflict matches the write-write conflicts the backing store
// raises when two allocations race: an insert race on a fresh counter key, a
// serialization failure, or a deadlock victim.
func isRetryableConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40p01")
}
