package explorer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

type minedBlock struct {
	Height int64  `json:"height"`
	Miner  string `json:"miner"`
}

type minerInfo struct {
	Hash string `json:"hash"`
}

var (
	errNoMiner     = errors.New("no miner")
	errUnparseable = errors.New("unparseable block")

	minerResource = explorer.Define[minerInfo](explorer.ResourceDescriptor{
		Name: "miner",
		Path: "/api/v2/miner",
	})
)

func minerInterceptor(fields []string) explorer.Interceptor[minedBlock] {
	return explorer.Interceptor[minedBlock]{
		Name: "miner_fill",
		Trigger: func(block *minedBlock) bool {
			return block.Miner == ""
		},
		Enrich: func(ctx context.Context, fetch explorer.Fetcher, block *minedBlock) error {
			miner, err := explorer.FetchAs(ctx, fetch, minerResource, nil, nil)
			if err != nil {
				return err
			}

			if miner.Hash == "" {
				return errNoMiner
			}

			block.Miner = miner.Hash

			return nil
		},
		Fields: fields,
	}
}

func newPipelineClient(t *testing.T, d *fakeDispatcher, resources ...*explorer.ResourceDescriptor) *explorer.QueryClient {
	t.Helper()

	registry, err := explorer.NewRegistry(append(resources, minerResource.ResourceDescriptor)...)
	require.NoError(t, err)

	client, err := explorer.NewQueryClient(registry, d)
	require.NoError(t, err)

	return client
}

func TestInterceptor_MergesListedFields(t *testing.T) {
	t.Parallel()

	blocks := explorer.Define(explorer.ResourceDescriptor{
		Name:       "mined_block",
		Path:       "/api/v2/blocks/:height",
		PathParams: []string{"height"},
	}, explorer.WithInterceptor(minerInterceptor([]string{"miner"})))

	d := newFakeDispatcher()
	d.respond("/api/v2/blocks/5", `{"height":5,"miner":"","extra":{"a":1}}`)
	d.respond("/api/v2/blocks/6", `{"height":6,"miner":"0xexisting"}`)
	d.respond("/api/v2/miner", `{"hash":"0xminer"}`)

	client := newPipelineClient(t, d, blocks.ResourceDescriptor)
	ctx := context.Background()

	result, err := client.Query(ctx, "mined_block", map[string]string{"height": "5"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":5,"miner":"0xminer","extra":{"a":1}}`, string(result.Data))

	result, err = client.Query(ctx, "mined_block", map[string]string{"height": "6"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":6,"miner":"0xexisting"}`, string(result.Data))
	assert.Equal(t, 1, d.count("/api/v2/miner"))
}

func TestInterceptor_ReplacesWholePayload(t *testing.T) {
	t.Parallel()

	blocks := explorer.Define(explorer.ResourceDescriptor{
		Name:       "mined_block",
		Path:       "/api/v2/blocks/:height",
		PathParams: []string{"height"},
	}, explorer.WithInterceptor(minerInterceptor(nil)))

	d := newFakeDispatcher()
	d.respond("/api/v2/blocks/5", `{"height":5,"extra":true}`)
	d.respond("/api/v2/miner", `{"hash":"0xminer"}`)

	client := newPipelineClient(t, d, blocks.ResourceDescriptor)

	result, err := client.Query(context.Background(), "mined_block", map[string]string{"height": "5"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":5,"miner":"0xminer"}`, string(result.Data))
}

func TestInterceptor_FailureKeepsPayload(t *testing.T) {
	t.Parallel()

	blocks := explorer.Define(explorer.ResourceDescriptor{
		Name:       "mined_block",
		Path:       "/api/v2/blocks/:height",
		PathParams: []string{"height"},
	}, explorer.WithInterceptor(minerInterceptor([]string{"miner"})))

	d := newFakeDispatcher()
	d.respond("/api/v2/blocks/5", `{"height":5,"extra":true}`)
	d.respond("/api/v2/miner", `{}`)

	client := newPipelineClient(t, d, blocks.ResourceDescriptor)

	result, err := client.Query(context.Background(), "mined_block", map[string]string{"height": "5"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":5,"extra":true}`, string(result.Data))
}

func TestTransform(t *testing.T) {
	t.Parallel()

	blocks := explorer.Define(explorer.ResourceDescriptor{
		Name:       "legacy_block",
		Path:       "/api/v1/blocks/:height",
		PathParams: []string{"height"},
	},
		explorer.WithTransform(func(raw []byte) (*minedBlock, error) {
			if string(raw) == "bad" {
				return nil, errUnparseable
			}

			return &minedBlock{Height: int64(len(raw))}, nil
		}),
		explorer.WithInterceptor(minerInterceptor([]string{"miner"})),
	)

	d := newFakeDispatcher()
	d.respond("/api/v1/blocks/1", `abc`)
	d.respond("/api/v1/blocks/2", `bad`)
	d.respond("/api/v2/miner", `{"hash":"0xminer"}`)

	client := newPipelineClient(t, d, blocks.ResourceDescriptor)
	ctx := context.Background()

	block, err := explorer.Get(ctx, client, blocks, map[string]string{"height": "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, &minedBlock{Height: 3, Miner: "0xminer"}, block)

	_, err = client.Query(ctx, "legacy_block", map[string]string{"height": "2"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable block")
	assert.Contains(t, err.Error(), "transforming legacy_block response")
}

func TestInterceptor_WithoutEnrich(t *testing.T) {
	t.Parallel()

	blocks := explorer.Define(explorer.ResourceDescriptor{
		Name: "plain",
		Path: "/api/v2/plain",
	}, explorer.WithInterceptor(explorer.Interceptor[minedBlock]{Name: "noop"}))

	d := newFakeDispatcher()
	d.respond("/api/v2/plain", `{"height":1,"other":"x"}`)

	client := newPipelineClient(t, d, blocks.ResourceDescriptor)

	result, err := client.Query(context.Background(), "plain", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":1,"other":"x"}`, string(result.Data))
	assert.Equal(t, "noop", blocks.InterceptorName())
}
