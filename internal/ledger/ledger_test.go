package ledger

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

func TestContractABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	require.NoError(t, err)

	for _, method := range []string{"createBatch", "addStage", "getBatch"} {
		_, ok := parsed.Methods[method]
		require.True(t, ok, "method %s missing from ABI", method)
	}
	_, ok := parsed.Events["BatchCreated"]
	require.True(t, ok, "BatchCreated event missing from ABI")
}

func TestParseBatchID(t *testing.T) {
	// Values beyond int64 must survive the round trip as decimal strings.
	huge := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	id, err := parseBatchID(huge)
	require.NoError(t, err)
	require.Equal(t, huge, id.String())

	id, err = parseBatchID("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id.Int64())

	for _, bad := range []string{"", "abc", "-1", "0x2a", "1.5"} {
		_, err := parseBatchID(bad)
		require.Error(t, err, "expected error for %q", bad)
	}
}
