// Package quotes generates the synthetic supplier market: every new RFQ
// gets one quote per supplier in a fixed roster, price-banded around a
// single randomly drawn base price.
package quotes

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/types"
)

type supplier struct {
	name   string
	factor float64
}

var suppliers = []supplier{
	{"CNCWorks GmbH", 1.00},
	{"PrecisionMills AG", 1.05},
	{"Alpha Machining", 0.95},
}

const quoteNote = "Includes standard QA, EXW terms."

const (
	basePriceMin = 120.0
	basePriceMax = 380.0
	leadTimeMin  = 5
	leadTimeMax  = 21
)

type Synthesizer struct {
	db *gorm.DB

	// rand.Rand is not safe for concurrent use; RFQ creates may race.
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSynthesizer(db *gorm.DB) *Synthesizer {
	return NewSeededSynthesizer(db, time.Now().UnixNano())
}

// NewSeededSynthesizer pins the random source so prices and lead times
// are reproducible.
func NewSeededSynthesizer(db *gorm.DB, seed int64) *Synthesizer {
	return &Synthesizer{
		db:  db,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Generate draws one base price uniformly from [120, 380), emits one
// quote per supplier with price = round(base * factor, 2) and a lead
// time drawn uniformly from [5, 21] days, and persists all of them
// before returning.
func (s *Synthesizer) Generate(rfqID string) ([]models.Quote, error) {
	s.mu.Lock()
	base := basePriceMin + s.rng.Float64()*(basePriceMax-basePriceMin)
	leadTimes := make([]int, len(suppliers))
	for i := range leadTimes {
		leadTimes[i] = leadTimeMin + s.rng.Intn(leadTimeMax-leadTimeMin+1)
	}
	s.mu.Unlock()

	batch := make([]models.Quote, 0, len(suppliers))

	for i, sup := range suppliers {
		note := quoteNote
		batch = append(batch, models.Quote{
			RFQID:        rfqID,
			SupplierName: sup.name,
			Price:        math.Round(base*sup.factor*100) / 100,
			Currency:     types.DefaultCurrency,
			LeadTimeDays: leadTimes[i],
			Notes:        &note,
		})
	}

	if err := s.db.Create(&batch).Error; err != nil {
		return nil, err
	}

	return batch, nil
}
