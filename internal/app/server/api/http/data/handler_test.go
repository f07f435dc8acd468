package data

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtracker/internal/app/client/crypto"
	"wealthtracker/internal/domain/record"
	"wealthtracker/internal/infrastructure/kv"
	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/infrastructure/storage/memory"
	"wealthtracker/internal/utils/clock"
	"wealthtracker/internal/utils/logger"
)

func newService(t *testing.T, fake *clock.Fake, opener storage.Opener) *record.Service {
	t.Helper()
	session := kv.NewMemoryStore()
	svc := record.NewService(record.Deps{
		OpenStore: opener,
		Legacy:    kv.NewMemoryStore(),
		Session:   session,
		Codec:     crypto.NewCodec(crypto.NewKeyManager(session, nil, logger.Discard()), nil),
		Clock:     fake,
		Log:       logger.Discard(),
	}, record.Config{})
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func setup(t *testing.T, svc record.Servicer) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewHandler(svc, logger.Discard(), huma.Middlewares{}, nil).SetupRoutes(api)
	return api
}

func TestHandler_ExportImport(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Now())

	src := newService(t, fake, memory.Opener(memory.New()))
	require.NoError(t, src.Set(ctx, record.KeyAccounts, []map[string]any{{"id": "1"}}))
	require.NoError(t, src.Set(ctx, record.KeyTheme, "dark"))

	resp := setup(t, src).Get("/api/v1/export")
	require.Equal(t, http.StatusOK, resp.Code)

	var dump map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dump))
	assert.Len(t, dump, 2)
	assert.JSONEq(t, `[{"id":"1"}]`, string(dump[record.KeyAccounts]))

	dst := newService(t, fake, memory.Opener(memory.New()))
	resp = setup(t, dst).Post("/api/v1/import", dump)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out importResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Imported)

	got, ok := dst.Get(ctx, record.KeyTheme)
	require.True(t, ok)
	assert.JSONEq(t, `"dark"`, string(got))
}

func TestHandler_Sweep(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Now())
	svc := newService(t, fake, memory.Opener(memory.New()))
	require.NoError(t, svc.Set(ctx, record.KeyTheme, "dark", record.WithExpiryDays(1)))

	fake.Add(25 * time.Hour)
	resp := setup(t, svc).Post("/api/v1/sweep")
	require.Equal(t, http.StatusOK, resp.Code)

	var out sweepResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Removed)
}

func TestHandler_DegradedStorage(t *testing.T) {
	svc := newService(t, clock.NewFake(time.Now()), func(context.Context) (storage.RecordStore, error) {
		return nil, storage.ErrUnavailable
	})
	api := setup(t, svc)

	resp := api.Post("/api/v1/sweep")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = api.Get("/api/v1/storage")
	require.Equal(t, http.StatusOK, resp.Code)
	var info storageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &info))
	assert.True(t, info.Ready)
	assert.True(t, info.Degraded)
	assert.Zero(t, info.Quota)
}
