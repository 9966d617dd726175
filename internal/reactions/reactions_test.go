package reactions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/thinkedin/internal/devicestate"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// fakeCounter — атомарный счётчик в памяти с управляемой ошибкой.
type fakeCounter struct {
	mu    sync.Mutex
	vals  map[string]models.Reactions
	calls []int64
	err   error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{vals: make(map[string]models.Reactions)}
}

func (f *fakeCounter) IncrementReactionCounter(_ context.Context, postID string, kind models.ReactionKind, delta int64) (*models.ReactionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, delta)
	if f.err != nil {
		return nil, f.err
	}

	v := f.vals[postID].Add(kind, delta)
	f.vals[postID] = v
	return &models.ReactionSnapshot{PostID: postID, Reactions: v, At: time.Now()}, nil
}

func (f *fakeCounter) get(postID string) models.Reactions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vals[postID]
}

func (f *fakeCounter) deltas() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...)
}

// Повторное переключение возвращает счётчики к исходному значению,
// в том числе на нуле, где хранилище не даёт счётчику уйти в минус.
func TestToggle_TwiceRestores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newFakeCounter()
	r := New(counter, devicestate.NewMemory(), time.Second, 0)
	r.Seed(models.Post{ID: "p1"})

	res, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionInspired)
	require.NoError(t, err)
	require.True(t, res.Reacted)
	require.Equal(t, int64(1), res.Reactions.Inspired)

	res, err = r.Toggle(ctx, "dev-1", "p1", models.ReactionInspired)
	require.NoError(t, err)
	require.False(t, res.Reacted)
	require.Zero(t, res.Reactions.Inspired)

	r.Wait()
	require.Equal(t, []int64{1, -1}, counter.deltas())
	require.Zero(t, counter.get("p1").Inspired)

	shown, ok := r.Shown("p1")
	require.True(t, ok)
	require.Zero(t, shown.Inspired)

	flags, err := r.Flags(ctx, "dev-1", "p1")
	require.NoError(t, err)
	require.Empty(t, flags)
}

// Серия переключений одной реакции доходит до хранилища в исходном порядке.
func TestToggle_SyncPreservesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newFakeCounter()
	counter.vals["p1"] = models.Reactions{Think: 5}
	r := New(counter, devicestate.NewMemory(), time.Second, 0)
	r.Seed(models.Post{ID: "p1", Reactions: models.Reactions{Think: 5}})

	for i := 0; i < 7; i++ {
		_, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionThink)
		require.NoError(t, err)
	}
	r.Wait()

	require.Equal(t, []int64{1, -1, 1, -1, 1, -1, 1}, counter.deltas())
	require.Equal(t, int64(6), counter.get("p1").Think)

	shown, _ := r.Shown("p1")
	require.Equal(t, int64(6), shown.Think)
}

// Отображаемый счётчик не уходит ниже нуля.
func TestToggle_FloorAtZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := devicestate.NewMemory()
	require.NoError(t, mem.ForDevice("dev-1").Set(ctx, devicestate.ReactionsKey("p1"), `{"inspired":true}`))

	r := New(newFakeCounter(), mem, time.Second, 0)
	r.Seed(models.Post{ID: "p1"})

	res, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionInspired)
	require.NoError(t, err)
	require.False(t, res.Reacted)
	require.Zero(t, res.Reactions.Inspired)
	r.Wait()
}

// Ошибка сервера проглатывается: локальное состояние остаётся оптимистичным.
func TestToggle_ServerFailureSwallowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newFakeCounter()
	counter.err = errors.New("store down")
	r := New(counter, devicestate.NewMemory(), time.Second, 0)

	res, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionRelatable)
	require.NoError(t, err)
	require.True(t, res.Reacted)
	require.Equal(t, int64(1), res.Reactions.Relatable)
	r.Wait()

	shown, ok := r.Shown("p1")
	require.True(t, ok)
	require.Equal(t, int64(1), shown.Relatable)

	flags, err := r.Flags(ctx, "dev-1", "p1")
	require.NoError(t, err)
	require.True(t, flags[models.ReactionRelatable])
}

// Флаги разных устройств и видов реакций независимы.
func TestToggle_IndependentFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newFakeCounter()
	r := New(counter, devicestate.NewMemory(), time.Second, 0)

	_, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionThink)
	require.NoError(t, err)
	_, err = r.Toggle(ctx, "dev-1", "p1", models.ReactionFollowing)
	require.NoError(t, err)
	res, err := r.Toggle(ctx, "dev-2", "p1", models.ReactionThink)
	require.NoError(t, err)
	require.True(t, res.Reacted)
	r.Wait()

	require.Equal(t, models.Reactions{Think: 2, Following: 1}, counter.get("p1"))

	flags, err := r.Flags(ctx, "dev-1", "p1")
	require.NoError(t, err)
	require.Equal(t, Flags{models.ReactionThink: true, models.ReactionFollowing: true}, flags)
}

// Параллельные реакции разных устройств не теряют инкременты.
func TestToggle_ConcurrentDevices(t *testing.T) {
	t.Parallel()
	counter := newFakeCounter()
	r := New(counter, devicestate.NewMemory(), time.Second, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Toggle(context.Background(), "dev-"+string(rune('A'+i%26))+string(rune('a'+i/26)), "p1", models.ReactionInspired)
		}(i)
	}
	wg.Wait()
	r.Wait()

	require.Equal(t, int64(50), counter.get("p1").Inspired)
}

func TestToggle_UnknownKind(t *testing.T) {
	t.Parallel()
	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 0)

	_, err := r.Toggle(context.Background(), "dev-1", "p1", models.ReactionKind("angry"))
	require.Error(t, err)
}

func TestApply_LastWriteWins(t *testing.T) {
	t.Parallel()
	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 0)

	r.Apply(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Think: 7}})
	r.Apply(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Think: 3}})

	shown, ok := r.Shown("p1")
	require.True(t, ok)
	require.Equal(t, int64(3), shown.Think)

	r.Forget("p1")
	_, ok = r.Shown("p1")
	require.False(t, ok)
}

func TestFlags_CorruptedValueIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := devicestate.NewMemory()
	require.NoError(t, mem.ForDevice("dev-1").Set(ctx, devicestate.ReactionsKey("p1"), "{not json"))

	r := New(newFakeCounter(), mem, time.Second, 0)
	flags, err := r.Flags(ctx, "dev-1", "p1")
	require.NoError(t, err)
	require.Empty(t, flags)
}

// gatedCounter держит первый инкремент до сигнала release.
type gatedCounter struct {
	*fakeCounter
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCounter() *gatedCounter {
	return &gatedCounter{
		fakeCounter: newFakeCounter(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedCounter) IncrementReactionCounter(ctx context.Context, postID string, kind models.ReactionKind, delta int64) (*models.ReactionSnapshot, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return g.fakeCounter.IncrementReactionCounter(ctx, postID, kind, delta)
}

// Пока локальные изменения не подтверждены, чужой снимок их не перетирает;
// после подтверждения показывается снимок хранилища.
func TestApply_IgnoredWhilePending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newGatedCounter()
	counter.vals["p1"] = models.Reactions{Relatable: 2}
	r := New(counter, devicestate.NewMemory(), time.Second, 0)
	r.Seed(models.Post{ID: "p1", Reactions: models.Reactions{Relatable: 2}})

	_, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionRelatable)
	require.NoError(t, err)
	<-counter.started

	r.Apply(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Relatable: 2}, At: time.Now()})

	shown, _ := r.Shown("p1")
	require.Equal(t, int64(3), shown.Relatable)

	close(counter.release)
	r.Wait()

	shown, _ = r.Shown("p1")
	require.Equal(t, int64(3), shown.Relatable)
	require.Equal(t, int64(3), counter.get("p1").Relatable)
}

// Снимок старше уже принятого отбрасывается.
func TestApply_OlderSnapshotDropped(t *testing.T) {
	t.Parallel()
	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 0)

	now := time.Now()
	r.Apply(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Think: 4}, At: now})
	r.Apply(models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Think: 9}, At: now.Add(-time.Second)})

	shown, _ := r.Shown("p1")
	require.Equal(t, int64(4), shown.Think)
}

func TestRefresh_Versioned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := newFakeCounter()
	counter.vals["p1"] = models.Reactions{Following: 9}
	r := New(counter, devicestate.NewMemory(), time.Second, 0)
	r.Seed(models.Post{ID: "p1", Reactions: models.Reactions{Following: 5}})

	// Свежее чтение применяется.
	v := r.Version("p1")
	got := r.Refresh(models.Post{ID: "p1", Reactions: models.Reactions{Following: 9}}, v)
	require.Equal(t, int64(9), got.Following)

	// Чтение, начатое до локального изменения, устарело.
	v = r.Version("p1")
	_, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionFollowing)
	require.NoError(t, err)
	r.Wait()

	got = r.Refresh(models.Post{ID: "p1", Reactions: models.Reactions{Following: 9}}, v)
	require.Equal(t, int64(10), got.Following)

	// Неизвестный пост просто запоминается.
	got = r.Refresh(models.Post{ID: "p2", Reactions: models.Reactions{Think: 1}}, 0)
	require.Equal(t, int64(1), got.Think)
}

// Seed не перезаписывает уже известные счётчики.
func TestSeed_KeepsKnown(t *testing.T) {
	t.Parallel()
	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 0)

	r.Seed(models.Post{ID: "p1", Reactions: models.Reactions{Think: 1}})
	r.Seed(models.Post{ID: "p1", Reactions: models.Reactions{Think: 8}})

	shown, _ := r.Shown("p1")
	require.Equal(t, int64(1), shown.Think)
}

// Память ограничена: давно не тронутые посты вытесняются.
func TestReconciler_EvictsLeastRecent(t *testing.T) {
	t.Parallel()
	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 2)

	r.Seed(models.Post{ID: "p1"}, models.Post{ID: "p2"})
	_, _ = r.Shown("p1")
	r.Seed(models.Post{ID: "p3"})

	_, ok := r.Shown("p2")
	require.False(t, ok)
	_, ok = r.Shown("p1")
	require.True(t, ok)
	_, ok = r.Shown("p3")
	require.True(t, ok)
}

// Не параллельный: счётчик синхронизаций общий для пакета.
func TestToggle_CountsSyncs(t *testing.T) {
	ctx := context.Background()
	okBefore := testutil.ToFloat64(syncs.WithLabelValues(string(models.ReactionThink), "ok"))
	failedBefore := testutil.ToFloat64(syncs.WithLabelValues(string(models.ReactionThink), "failed"))

	r := New(newFakeCounter(), devicestate.NewMemory(), time.Second, 0)
	_, err := r.Toggle(ctx, "dev-1", "p1", models.ReactionThink)
	require.NoError(t, err)
	r.Wait()

	failing := newFakeCounter()
	failing.err = errors.New("store down")
	r = New(failing, devicestate.NewMemory(), time.Second, 0)
	_, err = r.Toggle(ctx, "dev-1", "p1", models.ReactionThink)
	require.NoError(t, err)
	r.Wait()

	require.Equal(t, okBefore+1, testutil.ToFloat64(syncs.WithLabelValues(string(models.ReactionThink), "ok")))
	require.Equal(t, failedBefore+1, testutil.ToFloat64(syncs.WithLabelValues(string(models.ReactionThink), "failed")))
}
