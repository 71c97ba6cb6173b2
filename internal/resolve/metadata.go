package resolve

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// TokenMetadata is the short on-chain metadata of a mint.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// ExtendedMetadata is the off-chain metadata fetched from the URI.
type ExtendedMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Website     string `json:"website"`
	Image       string `json:"image"`
}

// Token-2022 mint layout: the base mint occupies 82 bytes, account state is
// padded to 165 with a type byte at 165, and TLV extensions follow.
const (
	mintBaseLen        = 82
	tlvStartOffset     = 166
	metadataExtensionT = 19
)

// fetchTimeout bounds the off-chain metadata GET.
const fetchTimeout = 2 * time.Second

// metadataResolver finds a mint's metadata: the token-2022 embedded
// extension first, the standard metadata-program account as fallback, and
// the extended record via HTTP from the URI. Every step is best-effort —
// absence never fails a lookup.
type metadataResolver struct {
	rpc    RPCClient
	http   *resty.Client
	logger *slog.Logger
}

func newMetadataResolver(rpc RPCClient, logger *slog.Logger) *metadataResolver {
	return &metadataResolver{
		rpc:    rpc,
		http:   resty.New().SetTimeout(fetchTimeout),
		logger: logger.With("component", "metadata"),
	}
}

// tokenMetadata resolves the short metadata of a mint, or zero values when
// neither source has it.
func (m *metadataResolver) tokenMetadata(ctx context.Context, mint string) TokenMetadata {
	if meta, err := m.token2022Metadata(ctx, mint); err == nil {
		return meta
	}
	if meta, err := m.metadataAccount(ctx, mint); err == nil {
		return meta
	}
	return TokenMetadata{}
}

// token2022Metadata walks the mint's TLV extension block looking for the
// embedded metadata extension.
func (m *metadataResolver) token2022Metadata(ctx context.Context, mint string) (TokenMetadata, error) {
	acc, err := m.rpc.GetAccount(ctx, mint)
	if err != nil {
		return TokenMetadata{}, err
	}
	if acc.Owner != types.Token2022ProgramID {
		return TokenMetadata{}, fmt.Errorf("mint not owned by token-2022")
	}
	if len(acc.Data) <= tlvStartOffset {
		return TokenMetadata{}, fmt.Errorf("mint has no extensions")
	}

	off := tlvStartOffset
	for off+4 <= len(acc.Data) {
		extType := binary.LittleEndian.Uint16(acc.Data[off:])
		extLen := int(binary.LittleEndian.Uint16(acc.Data[off+2:]))
		off += 4
		if off+extLen > len(acc.Data) {
			break
		}
		if extType == metadataExtensionT {
			return parseEmbeddedMetadata(acc.Data[off : off+extLen])
		}
		off += extLen
	}
	return TokenMetadata{}, fmt.Errorf("metadata extension not present")
}

// parseEmbeddedMetadata reads the metadata extension body: update authority,
// mint, then three length-prefixed strings.
func parseEmbeddedMetadata(data []byte) (TokenMetadata, error) {
	r := &acctReader{buf: data}
	r.skip("update_authority", 32)
	r.skip("mint", 32)

	meta := TokenMetadata{
		Name:   r.borshString("name"),
		Symbol: r.borshString("symbol"),
		URI:    r.borshString("uri"),
	}
	if r.err != nil {
		return TokenMetadata{}, r.err
	}
	return meta, nil
}

// metadataAccount reads the standard metadata-program PDA of the mint.
func (m *metadataResolver) metadataAccount(ctx context.Context, mint string) (TokenMetadata, error) {
	pda, err := DeriveMetadataPDA(mint)
	if err != nil {
		return TokenMetadata{}, err
	}
	acc, err := m.rpc.GetAccount(ctx, pda)
	if err != nil {
		return TokenMetadata{}, err
	}

	// key byte, update authority, mint, then padded strings.
	r := &acctReader{buf: acc.Data}
	r.skip("key", 1)
	r.skip("update_authority", 32)
	r.skip("mint", 32)

	meta := TokenMetadata{
		Name:   strings.TrimRight(r.borshString("name"), "\x00"),
		Symbol: strings.TrimRight(r.borshString("symbol"), "\x00"),
		URI:    strings.TrimRight(r.borshString("uri"), "\x00"),
	}
	if r.err != nil {
		return TokenMetadata{}, r.err
	}
	return meta, nil
}

// extendedMetadata fetches the off-chain record behind the URI. Failures
// return zero values.
func (m *metadataResolver) extendedMetadata(ctx context.Context, uri string) ExtendedMetadata {
	if uri == "" {
		return ExtendedMetadata{}
	}

	var meta ExtendedMetadata
	resp, err := m.http.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(uri)
	if err != nil || !resp.IsSuccess() {
		m.logger.Debug("extended metadata fetch failed", "uri", uri, "error", err)
		return ExtendedMetadata{}
	}
	return meta
}

// borshString reads a u32 length prefix followed by that many bytes.
func (r *acctReader) borshString(field string) string {
	if r.err != nil {
		return ""
	}
	if r.off+4 > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s length", field)
		return ""
	}
	n := int(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("account truncated at %s", field)
		return ""
	}
	v := string(r.buf[r.off : r.off+n])
	r.off += n
	return v
}
