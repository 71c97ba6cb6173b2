package resolve

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/0xdmtry/dex-indexer/pkg/types"
)

// DeriveBondingCurvePDA derives the canonical Pump.fun bonding-curve address
// for a mint.
func DeriveBondingCurvePDA(mint string) (string, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("parse mint: %w", err)
	}
	program := solana.MustPublicKeyFromBase58(types.PumpFunProgramID)

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mintKey.Bytes()},
		program,
	)
	if err != nil {
		return "", fmt.Errorf("derive bonding curve pda: %w", err)
	}
	return pda.String(), nil
}

// DerivePoolPDA derives the canonical PumpSwap pool address for a mint. The
// pool authority is itself a PDA of the Pump.fun program.
func DerivePoolPDA(mint string) (string, error) {
	baseMint, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("parse mint: %w", err)
	}
	quoteMint := solana.MustPublicKeyFromBase58(types.WrappedSOLMint)
	pumpProgram := solana.MustPublicKeyFromBase58(types.PumpFunProgramID)
	swapProgram := solana.MustPublicKeyFromBase58(types.PumpSwapProgramID)

	creator, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool-authority"), baseMint.Bytes()},
		pumpProgram,
	)
	if err != nil {
		return "", fmt.Errorf("derive pool authority: %w", err)
	}

	var index [2]byte
	binary.LittleEndian.PutUint16(index[:], 0)

	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("pool"),
			index[:],
			creator.Bytes(),
			baseMint.Bytes(),
			quoteMint.Bytes(),
		},
		swapProgram,
	)
	if err != nil {
		return "", fmt.Errorf("derive pool pda: %w", err)
	}
	return pda.String(), nil
}

// DeriveMetadataPDA derives the standard metadata-program account for a mint.
func DeriveMetadataPDA(mint string) (string, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("parse mint: %w", err)
	}
	program := solana.MustPublicKeyFromBase58(types.MetadataProgramID)

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), program.Bytes(), mintKey.Bytes()},
		program,
	)
	if err != nil {
		return "", fmt.Errorf("derive metadata pda: %w", err)
	}
	return pda.String(), nil
}
