package port

import "hydra/internal/domain"

// Publisher receives every freshly resolved record. Publish is
// fire-and-forget: delivery to individual recipients may fail without the
// caller ever noticing.
type Publisher interface {
	Publish(rec domain.PriceRecord)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(rec domain.PriceRecord)

func (f PublisherFunc) Publish(rec domain.PriceRecord) { f(rec) }
