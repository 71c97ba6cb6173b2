// Package bus shuttles typed events between producers and consumers over
// Kafka. Producers publish envelopes to the topic owned by the event type;
// the consumer subscribes, under one group id, to the topics that have a
// handler registered on its router (other topics are not read) and
// dispatches by topic to typed handlers.
package bus

import (
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Topic names recognized by the router.
const (
	TopicPfTrade       = "pf_trade_event"
	TopicPfPriceUpdate = "pf_price_update_event"
	TopicPfCreate      = "pf_create_event"
	TopicPfMigrate     = "pf_migrate_event"

	TopicPsTrade       = "ps_trade_event"
	TopicPsPriceUpdate = "ps_price_update_event"
	TopicPsCreate      = "ps_create_event"

	TopicRllTrade       = "rll_trade_event"
	TopicRllPriceUpdate = "rll_price_update_event"
	TopicRllCreate      = "rll_create_event"
	TopicRllMigrate     = "rll_migrate_event"

	TopicFulfillReq = "fulfill_req"
	TopicPriceReq   = "price_req"
)

// topicByType maps each event type to the topic that carries it.
var topicByType = map[types.EventType]string{
	types.EventPfTradeOccurred:  TopicPfTrade,
	types.EventPfPriceUpdated:   TopicPfPriceUpdate,
	types.EventPfTokenCreated:   TopicPfCreate,
	types.EventPfTokenMigrated:  TopicPfMigrate,
	types.EventPsTradeOccurred:  TopicPsTrade,
	types.EventPsPriceUpdated:   TopicPsPriceUpdate,
	types.EventPsTokenCreated:   TopicPsCreate,
	types.EventRllTradeOccurred: TopicRllTrade,
	types.EventRllPriceUpdated:  TopicRllPriceUpdate,
	types.EventRllTokenCreated:  TopicRllCreate,
	types.EventRllTokenMigrated: TopicRllMigrate,
	types.EventTokenFulfilled:   TopicFulfillReq,
	types.EventPriceRequested:   TopicPriceReq,
}

// TopicFor returns the topic carrying the given event type, or "" when the
// type is unknown.
func TopicFor(t types.EventType) string {
	return topicByType[t]
}

// AllTopics lists every topic the router recognizes. The consumer reads only
// those with a registered handler.
func AllTopics() []string {
	return []string{
		TopicPfTrade, TopicPfPriceUpdate, TopicPfCreate, TopicPfMigrate,
		TopicPsTrade, TopicPsPriceUpdate, TopicPsCreate,
		TopicRllTrade, TopicRllPriceUpdate, TopicRllCreate, TopicRllMigrate,
		TopicFulfillReq, TopicPriceReq,
	}
}
