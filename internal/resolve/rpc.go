package resolve

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

// Account is one fetched on-chain account: its owning program and raw data.
type Account struct {
	Owner string
	Data  []byte
}

// TokenAccount is one SPL token account owned by a probed address.
type TokenAccount struct {
	Address string
	Mint    string
	Amount  uint64
}

// RPCClient is the capability the resolver needs from the chain RPC node.
type RPCClient interface {
	GetAccount(ctx context.Context, address string) (*Account, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)
}

// solanaRPC adapts the solana-go JSON-RPC client to the RPCClient
// capability.
type solanaRPC struct {
	client *solrpc.Client
}

// NewRPCClient connects an RPCClient to the given HTTP endpoint.
func NewRPCClient(httpURL string) RPCClient {
	return &solanaRPC{client: solrpc.New(httpURL)}
}

func (s *solanaRPC) GetAccount(ctx context.Context, address string) (*Account, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}

	out, err := s.client.GetAccountInfo(ctx, pub)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if out.Value == nil {
		return nil, fmt.Errorf("account %s not found", address)
	}

	return &Account{
		Owner: out.Value.Owner.String(),
		Data:  out.Value.Data.GetBinary(),
	}, nil
}

func (s *solanaRPC) GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	programKey, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("parse program id: %w", err)
	}

	out, err := s.client.GetTokenAccountsByOwner(
		ctx,
		ownerKey,
		&solrpc.GetTokenAccountsConfig{ProgramId: &programKey},
		&solrpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts of %s: %w", owner, err)
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, keyed := range out.Value {
		data := keyed.Account.Data.GetBinary()
		if len(data) < tokenAccountAmountOffset+8 {
			continue
		}
		amount, err := TokenAccountAmount(data)
		if err != nil {
			continue
		}
		accounts = append(accounts, TokenAccount{
			Address: keyed.Pubkey.String(),
			Mint:    solana.PublicKeyFromBytes(data[:32]).String(),
			Amount:  amount,
		})
	}
	return accounts, nil
}
