package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/0xdmtry/dex-indexer/internal/store"
	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// Publisher sends router messages; satisfied by the bus producer.
type Publisher interface {
	Publish(ctx context.Context, evt *types.Event) error
}

// Service listens for lookup requests on the cache bus, resolves them, and
// fans successful results out: the caller's channel, the tokens:by_* and
// subscriptions:by_* keys of each address kind the token populates, a price
// request for the subscription manager, and a fulfillment message for
// persistence.
type Service struct {
	resolver *Resolver
	cache    *store.Cache
	pub      Publisher
	logger   *slog.Logger
}

// NewService wires the resolver to its fan-out targets.
func NewService(resolver *Resolver, cache *store.Cache, pub Publisher, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		cache:    cache,
		pub:      pub,
		logger:   logger.With("component", "resolve_service"),
	}
}

// Run consumes the req_handler channel until ctx is cancelled. Each request
// is a JSON array [identifier, channel-id].
func (s *Service) Run(ctx context.Context) error {
	sub := s.cache.Subscribe(ctx, store.ReqHandlerChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("request subscription closed")
			}

			var req []string
			if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil || len(req) < 2 {
				s.logger.Warn("malformed lookup request", "payload", msg.Payload)
				continue
			}
			s.handle(ctx, req[0], req[1])
		}
	}
}

func (s *Service) handle(ctx context.Context, identifier, channelID string) {
	token, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("nothing found", "input", identifier)
		} else {
			s.logger.Warn("lookup failed", "input", identifier, "error", err)
		}
		return
	}

	payload, err := json.Marshal(token)
	if err != nil {
		s.logger.Error("marshal resolved token", "error", err)
		return
	}

	// Answer the caller first; enrichment of shared state follows.
	if err := s.cache.Publish(ctx, channelID, string(payload)); err != nil {
		s.logger.Error("publish to caller channel failed", "channel", channelID, "error", err)
	}

	s.cacheToken(ctx, token, string(payload))

	if err := s.requestPriceStream(ctx, token); err != nil {
		s.logger.Error("price request failed", "mint", token.Mint, "error", err)
	}

	fulfil := &types.Event{Type: types.EventTokenFulfilled, Data: token}
	if err := s.pub.Publish(ctx, fulfil); err != nil {
		s.logger.Error("fulfillment publish failed", "mint", token.Mint, "error", err)
	}
}

// cacheToken writes the token under tokens:by_* and subscriptions:by_* for
// every populated address kind.
func (s *Service) cacheToken(ctx context.Context, token *types.EnrichedToken, payload string) {
	for kind, id := range map[string]string{
		"mint":          token.Mint,
		"bonding_curve": token.BondingCurve,
		"pool":          token.Pool,
		"pool_state":    token.PoolState,
	} {
		if id == "" {
			continue
		}
		if err := s.cache.SetWithTTL(ctx, store.TokenKey(kind, id), payload); err != nil {
			s.logger.Error("token cache write failed", "kind", kind, "error", err)
		}
		if err := s.cache.SetWithTTL(ctx, store.SubscriptionKey(kind, id), payload); err != nil {
			s.logger.Error("subscription cache write failed", "kind", kind, "error", err)
		}
	}
}

// requestPriceStream tells the subscription manager to start tracking the
// token's market, together with every market of the same kind already
// cached. No request is sent when the token's own market is already in the
// subscription set.
func (s *Service) requestPriceStream(ctx context.Context, token *types.EnrichedToken) error {
	kind, platform := subscriptionKind(token)
	if kind == "" {
		return nil
	}

	secondary := token.Secondary()
	already, err := s.cache.MarkSubscribed(ctx, kind, secondary)
	if err != nil {
		return err
	}
	if already {
		s.logger.Debug("market already subscribed", "kind", kind, "id", secondary)
		return nil
	}

	ids, err := s.cache.ScanIdentifiers(ctx, "tokens:by_"+kind+":")
	if err != nil {
		return err
	}

	tracked := make(map[string]types.Platform, len(ids)+1)
	for _, id := range ids {
		tracked[id] = platform
	}
	tracked[secondary] = platform

	req := &types.Event{
		Type: types.EventPriceRequested,
		Data: &types.SubscriptionRequest{TrackedAccounts: tracked},
	}
	return s.pub.Publish(ctx, req)
}

func subscriptionKind(token *types.EnrichedToken) (string, types.Platform) {
	switch {
	case token.BondingCurve != "":
		return "bonding_curve", types.PlatformPumpFun
	case token.Pool != "":
		return "pool", types.PlatformPumpSwap
	case token.PoolState != "":
		return "pool_state", types.PlatformRaydiumLaunchLab
	default:
		return "", types.PlatformUnknown
	}
}
