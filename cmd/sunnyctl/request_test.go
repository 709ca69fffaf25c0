package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/dispatch"
	"sunnydapp/internal/models"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArg(t *testing.T) {
	addr := keypair.MustRandom().Address()

	tests := []struct {
		raw  string
		want xdr.ScValType
	}{
		{"A1", xdr.ScValTypeScvString},
		{"s:NYC", xdr.ScValTypeScvString},
		{"y:min_time", xdr.ScValTypeScvSymbol},
		{"i:-5", xdr.ScValTypeScvI64},
		{"u:42", xdr.ScValTypeScvU64},
		{"a:" + addr, xdr.ScValTypeScvAddress},
		{"https://example.com", xdr.ScValTypeScvString},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := parseArg(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Type)
		})
	}

	_, err := parseArg("i:ten")
	assert.Error(t, err)
	_, err = parseArg("a:GNOTANACCOUNT")
	assert.Error(t, err)
}

func TestBuildRequest_SignaturesVerify(t *testing.T) {
	owner := keypair.MustRandom()
	oracle := keypair.MustRandom()
	sequences := map[string]uint64{owner.Address(): 4, oracle.Address(): 0}

	req, err := buildRequest(network.TestNetworkPassphrase, "resultNotice", []string{"A1", "i:60", "i:5"},
		[]*keypair.Full{owner, oracle}, sequences)
	require.NoError(t, err)
	require.Len(t, req.Args, 3)
	assert.Equal(t, sequences, req.Sequences)

	args, err := dispatch.DecodeArgs(req.Args)
	require.NoError(t, err)
	_, err = dispatch.Parse("resultNotice", args)
	require.NoError(t, err)

	sigs := map[string]auth.Signature{}
	for account, sig := range req.Signatures {
		raw, err := base64.StdEncoding.DecodeString(sig)
		require.NoError(t, err)
		sigs[account] = auth.Signature{Sequence: req.Sequences[account], Sig: raw}
	}

	w, err := auth.VerifySignatures(network.TestNetworkPassphrase, "resultNotice", req.Args, sigs)
	require.NoError(t, err)
	assert.True(t, w.IsAuthorized(owner.Address()))
	assert.True(t, w.IsAuthorized(oracle.Address()))
	assert.Equal(t, sequences, w.Sequences())

	// a different network rejects the same signatures
	_, err = auth.VerifySignatures(network.PublicNetworkPassphrase, "resultNotice", req.Args, sigs)
	assert.Error(t, err)
}

func TestFetchSequence(t *testing.T) {
	account := keypair.MustRandom().Address()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sequences/"+account {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(models.SequenceResponse{Account: account, Sequence: 3})
	}))
	defer srv.Close()

	seq, err := fetchSequence(srv.Client(), srv.URL, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)

	_, err = fetchSequence(srv.Client(), srv.URL, "GOTHER")
	assert.Error(t, err)
}
