package imagededup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
	"github.com/efarmer/subsidy/common/store/memory"
)

func TestDigest(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest([]byte("abc")))
	assert.Equal(t, "sha256:ab", Ref("ab"))
}

func TestRegisterAndCheck_CrossOwnerReuse(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewUsageStore())
	photo := []byte("field photo bytes")

	a, err := r.RegisterAndCheck(ctx, "A", models.RoleStandard, photo)
	require.NoError(t, err)
	assert.True(t, a.Clean())

	b, err := r.RegisterAndCheck(ctx, "B", models.RoleStandard, photo)
	require.NoError(t, err)
	assert.Equal(t, []string{"reused from owner A (role standard)"}, b.Reasons)

	// A's record is unaffected; both submissions are kept in order
	usages, err := r.Usages(ctx, Digest(photo))
	require.NoError(t, err)
	assert.Equal(t, []models.UsageRecord{
		{OwnerID: "A", Role: models.RoleStandard},
		{OwnerID: "B", Role: models.RoleStandard},
	}, usages)
}

func TestRegisterAndCheck_SameOwnerBothRoles(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewUsageStore())
	photo := []byte("same shot")

	_, err := r.RegisterAndCheck(ctx, "A", models.RoleStandard, photo)
	require.NoError(t, err)

	f, err := r.RegisterAndCheck(ctx, "A", models.RoleCorner, photo)
	require.NoError(t, err)
	assert.Equal(t, []string{SameOwnerReason}, f.Reasons)
}

func TestRegisterAndCheck_SameOwnerSameRoleIsClean(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewUsageStore())
	photo := []byte("re-upload")

	_, err := r.RegisterAndCheck(ctx, "A", models.RoleCorner, photo)
	require.NoError(t, err)
	f, err := r.RegisterAndCheck(ctx, "A", models.RoleCorner, photo)
	require.NoError(t, err)
	assert.True(t, f.Clean())
}

func TestRegisterAndCheck_RejectsUnknownRole(t *testing.T) {
	r := NewRegistry(memory.NewUsageStore())
	_, err := r.RegisterAndCheck(context.Background(), "A", models.ImageRole("aerial"), []byte("x"))
	assert.Error(t, err)
}

func TestRegistry_Monotone(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewUsageStore())
	photo := []byte("monotone")
	digest := Digest(photo)

	last := 0
	for i, owner := range []string{"A", "B", "A", "C", "B"} {
		role := models.Roles[i%2]
		_, err := r.RegisterAndCheck(ctx, owner, role, photo)
		require.NoError(t, err)

		usages, err := r.Usages(ctx, digest)
		require.NoError(t, err)
		assert.Equal(t, last+1, len(usages))
		last = len(usages)
	}
}

func TestRegistry_ConcurrentSameDigestOnlyOneClean(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.NewUsageStore())
	photo := []byte("raced photo")

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	clean := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := r.RegisterAndCheck(ctx, fmt.Sprintf("F%02d", i), models.RoleStandard, photo)
			assert.NoError(t, err)
			if f.Clean() {
				mu.Lock()
				clean++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, clean)
	usages, _ := r.Usages(ctx, Digest(photo))
	assert.Len(t, usages, n)
}

func TestReasons_OnePerOffendingRecord(t *testing.T) {
	prior := []models.UsageRecord{
		{OwnerID: "A", Role: models.RoleStandard},
		{OwnerID: "B", Role: models.RoleCorner},
		{OwnerID: "B", Role: models.RoleStandard},
	}
	assert.Equal(t, []string{
		"reused from owner A (role standard)",
		SameOwnerReason,
	}, Reasons("B", models.RoleStandard, prior))
}

func TestNextStatus(t *testing.T) {
	pending := models.PendingStatus()
	suspicious := models.ImageStatus{State: models.ImageSuspicious, Reasons: []string{"reused from owner A (role standard)"}}

	tests := []struct {
		name    string
		current models.ImageStatus
		hasAll  bool
		reasons []string
		want    models.ImageStatus
	}{
		{"one role only", pending, false, nil, pending},
		{"both roles clean", pending, true, nil, models.ImageStatus{State: models.ImageVerified}},
		{"reasons make suspicious", pending, false, []string{"x"}, models.ImageStatus{State: models.ImageSuspicious, Reasons: []string{"x"}}},
		{"suspicious is sticky", suspicious, true, nil, suspicious},
		{"new reasons replace old", suspicious, true, []string{"y", "z"}, models.ImageStatus{State: models.ImageSuspicious, Reasons: []string{"y", "z"}}},
		{"verified then reuse", models.ImageStatus{State: models.ImageVerified}, true, []string{"x"}, models.ImageStatus{State: models.ImageSuspicious, Reasons: []string{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(tt.current, tt.hasAll, tt.reasons))
		})
	}
}

type failingUsages struct{}

func (failingUsages) AppendUsage(context.Context, string, models.UsageRecord) ([]models.UsageRecord, error) {
	return nil, fmt.Errorf("disk full")
}

func (failingUsages) Usages(context.Context, string) ([]models.UsageRecord, error) {
	return nil, fmt.Errorf("disk full")
}

var _ store.UsageStore = failingUsages{}

func TestRegisterAndCheck_StorageFailure(t *testing.T) {
	r := NewRegistry(failingUsages{})
	_, err := r.RegisterAndCheck(context.Background(), "A", models.RoleStandard, []byte("x"))
	assert.Error(t, err)
}

func TestRedisUsageStore_Integration(t *testing.T) {
	addr := os.Getenv("SUBSIDY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SUBSIDY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	require.NoError(t, client.FlushDB(ctx).Err())

	r := NewRegistry(NewRedisUsageStore(client))
	photo := []byte("redis photo")

	first, err := r.RegisterAndCheck(ctx, "A", models.RoleStandard, photo)
	require.NoError(t, err)
	assert.True(t, first.Clean())

	second, err := r.RegisterAndCheck(ctx, "B", models.RoleStandard, photo)
	require.NoError(t, err)
	assert.Equal(t, []string{"reused from owner A (role standard)"}, second.Reasons)

	usages, err := r.Usages(ctx, Digest(photo))
	require.NoError(t, err)
	assert.Len(t, usages, 2)
}
