package eutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/httpretry"
	"github.com/vihaankulkarni29/NCBI-MetadataHarvester/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(
		Config{BaseURL: srv.URL, Tool: "harvester-test", Email: "dev@example.com", APIKey: "k"},
		ratelimit.New(1000, 10),
		httpretry.New(httpretry.DefaultConfig()),
	)
}

func TestESearch_ParsesIDListAndSendsIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "harvester-test", q.Get("tool"))
		assert.Equal(t, "dev@example.com", q.Get("email"))
		assert.Equal(t, "k", q.Get("api_key"))
		assert.Equal(t, "assembly", q.Get("db"))
		assert.Equal(t, "5", q.Get("retmax"))
		_, _ = w.Write([]byte(`{"esearchresult":{"count":"2","idlist":["101","202"]}}`))
	})

	ids, err := c.ESearch(context.Background(), DBAssembly, `Escherichia coli[Organism]`, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "202"}, ids)
}

func TestESummary_SkipsUIDsIndexEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esummary.fcgi", r.URL.Path)
		assert.Equal(t, "101,202", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"result":{
			"uids":["101","202"],
			"101":{"assemblyaccession":"GCF_000005845.2","assemblyname":"ASM584v2","assemblystatus":"Complete Genome","refseq_category":"reference genome"},
			"202":{"assemblyaccession":"GCA_000001405.29","assemblyname":"GRCh38.p14"}
		}}`))
	})

	docs, err := c.ESummary(context.Background(), DBAssembly, []string{"101", "202"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "GCF_000005845.2", docs["101"].AssemblyAccession)
	assert.True(t, docs["101"].IsRefSeq())
	assert.False(t, docs["202"].IsRefSeq())
}

func TestELink_MapsSourceToRelatedIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/elink.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "assembly", q.Get("dbfrom"))
		assert.Equal(t, "nuccore", q.Get("db"))
		assert.Equal(t, LinkAssemblyNuccoreRefSeq, q.Get("linkname"))
		_, _ = w.Write([]byte(`{"linksets":[{"ids":["101"],"linksetdbs":[{"dbto":"nuccore","linkname":"assembly_nuccore_refseq","links":["556503834"]}]}]}`))
	})

	links, err := c.ELink(context.Background(), DBAssembly, DBNuccore, []string{"101"}, LinkAssemblyNuccoreRefSeq)
	require.NoError(t, err)
	assert.Equal(t, []string{"556503834"}, links["101"])
}

func TestELink_EmptyLinkset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"linksets":[{"ids":["101"],"linksetdbs":[]}]}`))
	})

	links, err := c.ELink(context.Background(), DBAssembly, DBNuccore, []string{"101"}, LinkAssemblyNuccoreRefSeq)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestEFetch_ReturnsRawText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "gb", q.Get("rettype"))
		assert.Equal(t, "text", q.Get("retmode"))
		_, _ = w.Write([]byte("LOCUS       NC_000913\n//\n"))
	})

	text, err := c.EFetch(context.Background(), DBNuccore, []string{"NC_000913.3"}, "gb", "text")
	require.NoError(t, err)
	assert.Contains(t, text, "LOCUS")
}
