package chaincfg

import (
	"testing"

	"github.com/oneepicnight/vision-node/pow"
)

func TestValidateShippedNetworks(t *testing.T) {
	if err := MainnetParams.Validate(); err != nil {
		t.Fatalf("mainnet parameters invalid: %v", err)
	}
	if err := SimnetParams.Validate(); err != nil {
		t.Fatalf("simnet parameters invalid: %v", err)
	}
}

func TestValidateRefusesExperimentalPowOnMainnet(t *testing.T) {
	// Pairing the production genesis with the lite PoW variant would let
	// a misbuilt node fork itself off the network; it must not start.
	params := MainnetParams
	params.PowParams = pow.LiteParams()
	if err := params.Validate(); err != ErrExperimentalPowOnProduction {
		t.Fatalf("Validate = %v, want ErrExperimentalPowOnProduction", err)
	}
}

func TestValidateRefusesExperimentalPowWithoutOptIn(t *testing.T) {
	params := SimnetParams
	params.AcceptExperimentalPow = false
	if err := params.Validate(); err != ErrExperimentalPowOnProduction {
		t.Fatalf("Validate = %v, want ErrExperimentalPowOnProduction", err)
	}
}

func TestValidateRefusesNilGenesis(t *testing.T) {
	params := SimnetParams
	params.GenesisHash = nil
	if err := params.Validate(); err == nil {
		t.Fatal("parameters without a genesis hash validated")
	}
}

func TestValidateRefusesUnsortedCheckpoints(t *testing.T) {
	params := MainnetParams
	params.Checkpoints = []Checkpoint{
		{Height: 5000, Hash: &genesisHash},
		{Height: 100, Hash: &genesisHash},
	}
	if err := params.Validate(); err == nil {
		t.Fatal("unsorted checkpoints validated")
	}
}

func TestGenesisBlockIdentity(t *testing.T) {
	for _, params := range []*Params{&MainnetParams, &SimnetParams} {
		genesis := params.GenesisBlock()
		hash := genesis.BlockHash()
		if !hash.IsEqual(params.GenesisHash) {
			t.Fatalf("%s genesis block hashes to %s, want the hard-coded "+
				"%s", params.Name, hash, params.GenesisHash)
		}
		if genesis.Header.Height != 0 {
			t.Fatalf("%s genesis height = %d, want 0", params.Name,
				genesis.Header.Height)
		}
		if !genesis.Header.ParentHash.IsZero() {
			t.Fatalf("%s genesis has a parent", params.Name)
		}
	}
}

func TestGenesisBlocksDiffer(t *testing.T) {
	mainnet := MainnetParams.GenesisBlock()
	simnet := SimnetParams.GenesisBlock()
	mainnetHash := mainnet.BlockHash()
	simnetHash := simnet.BlockHash()
	if mainnetHash.IsEqual(&simnetHash) {
		t.Fatal("mainnet and simnet share a genesis block")
	}
	if mainnet.Header.Timestamp == simnet.Header.Timestamp {
		t.Fatal("mainnet and simnet genesis timestamps are equal")
	}
}
