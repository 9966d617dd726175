// Package reactions — переключение реакций устройства с оптимистичным обновлением счётчиков.
//
// Флаги «устройство поставило реакцию» живут в devicestate. Отображаемые счётчики
// меняются сразу, а серверный счётчик обновляется атомарным инкрементом в фоне,
// по порядку для каждой пары (пост, реакция). Ошибка фоновой синхронизации
// логируется и не возвращается вызывающему.
package reactions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pribylovaa/thinkedin/internal/devicestate"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var syncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "thinkedin_reaction_sync_total",
	Help: "The total number of background reaction counter updates",
}, []string{"kind", "status"})

// Counter — атомарный серверный счётчик.
type Counter interface {
	IncrementReactionCounter(ctx context.Context, postID string, kind models.ReactionKind, delta int64) (*models.ReactionSnapshot, error)
}

// Flags — реакции, поставленные устройством на пост.
type Flags map[models.ReactionKind]bool

// Result — состояние после переключения.
type Result struct {
	Reacted   bool
	Reactions models.Reactions
}

// DefaultCacheSize — сколько постов Reconciler держит в памяти по умолчанию.
const DefaultCacheSize = 10000

// entry — отображаемые счётчики поста.
//   - pending: локальные изменения, ещё не подтверждённые хранилищем;
//   - at: время последнего принятого серверного снимка;
//   - version: растёт при каждом изменении counts.
type entry struct {
	counts  models.Reactions
	pending int
	at      time.Time
	version uint64
}

// lane — очередь инкрементов одного (пост, реакция); разбирается одним воркером по порядку.
type lane struct {
	deltas []int64
}

// Reconciler хранит отображаемые счётчики постов и синхронизирует их с хранилищем.
//
// Инкременты одного (пост, реакция) уходят в хранилище строго в порядке Toggle.
// Пока у поста есть неподтверждённые изменения, серверные снимки его не перезаписывают:
// локальное оптимистичное значение главнее.
type Reconciler struct {
	counter Counter
	devices devicestate.Provider
	timeout time.Duration

	mu    sync.Mutex
	shown *lru.Cache[string, *entry]
	lanes map[string]*lane

	wg sync.WaitGroup
}

// New создаёт Reconciler. timeout ограничивает одну фоновую синхронизацию,
// size — число постов в памяти (давно не тронутые вытесняются).
func New(counter Counter, devices devicestate.Provider, timeout time.Duration, size int) *Reconciler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if size <= 0 {
		size = DefaultCacheSize
	}

	shown, _ := lru.New[string, *entry](size)

	return &Reconciler{
		counter: counter,
		devices: devices,
		timeout: timeout,
		shown:   shown,
		lanes:   make(map[string]*lane),
	}
}

// Toggle переключает реакцию kind устройства на посте:
//   - флаг не стоял: ставим, +1 к отображаемому счётчику, +1 на сервере;
//   - флаг стоял: снимаем, -1 (не ниже нуля), -1 на сервере.
//
// Ошибка возвращается, только если не удалось прочитать или записать флаги устройства.
func (r *Reconciler) Toggle(ctx context.Context, deviceID, postID string, kind models.ReactionKind) (Result, error) {
	const op = "reactions/Toggle"

	if !kind.Valid() {
		return Result{}, fmt.Errorf("%s: unknown reaction %q", op, kind)
	}

	st := r.devices.ForDevice(deviceID)

	flags, err := loadFlags(ctx, st, postID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	reacted := !flags[kind]
	delta := int64(1)
	if !reacted {
		delta = -1
	}

	if reacted {
		flags[kind] = true
	} else {
		delete(flags, kind)
	}

	if err := saveFlags(ctx, st, postID, flags); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	e := r.entryLocked(postID)
	e.counts = e.counts.Add(kind, delta)
	e.pending++
	e.version++
	shown := e.counts
	r.enqueueLocked(ctx, postID, kind, delta)
	r.mu.Unlock()

	return Result{Reacted: reacted, Reactions: shown}, nil
}

func laneKey(postID string, kind models.ReactionKind) string {
	return postID + "/" + string(kind)
}

// enqueueLocked ставит инкремент в очередь (пост, реакция) и при необходимости
// запускает её воркер. Вызывается под r.mu.
func (r *Reconciler) enqueueLocked(ctx context.Context, postID string, kind models.ReactionKind, delta int64) {
	key := laneKey(postID, kind)
	if l, ok := r.lanes[key]; ok {
		l.deltas = append(l.deltas, delta)
		return
	}

	r.lanes[key] = &lane{deltas: []int64{delta}}

	bg := log.Detached(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.drain(bg, key, postID, kind)
	}()
}

// drain по одному отправляет инкременты очереди и завершается, когда она пуста.
func (r *Reconciler) drain(ctx context.Context, key, postID string, kind models.ReactionKind) {
	for {
		r.mu.Lock()
		l := r.lanes[key]
		if len(l.deltas) == 0 {
			delete(r.lanes, key)
			r.mu.Unlock()
			return
		}
		delta := l.deltas[0]
		l.deltas = l.deltas[1:]
		r.mu.Unlock()

		r.push(ctx, postID, kind, delta)
	}
}

// push отправляет один инкремент в хранилище и подтверждает его локально.
func (r *Reconciler) push(bg context.Context, postID string, kind models.ReactionKind, delta int64) {
	ctx, cancel := context.WithTimeout(bg, r.timeout)
	defer cancel()

	snap, err := r.counter.IncrementReactionCounter(ctx, postID, kind, delta)
	if err != nil {
		syncs.WithLabelValues(string(kind), "failed").Inc()
		log.From(bg).Warn("reaction_sync_failed",
			"post_id", postID,
			"kind", string(kind),
			"delta", delta,
			"err", err,
		)
	} else {
		syncs.WithLabelValues(string(kind), "ok").Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.shown.Peek(postID)
	if !ok {
		return
	}
	if e.pending > 0 {
		e.pending--
	}

	// Последний подтверждённый снимок уже содержит все локальные изменения поста.
	if snap != nil && e.pending == 0 {
		e.applyLocked(*snap)
	}
}

// Apply принимает снимок с сервера (last-write-wins по времени снимка).
// Снимок не применяется, если у поста есть неподтверждённые локальные изменения
// или он старше уже принятого.
func (r *Reconciler) Apply(snap models.ReactionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entryLocked(snap.PostID)
	if e.pending > 0 {
		return
	}
	e.applyLocked(snap)
}

func (e *entry) applyLocked(snap models.ReactionSnapshot) {
	if snap.At.Before(e.at) {
		return
	}
	e.counts = snap.Reactions
	e.at = snap.At
	e.version++
}

// Seed запоминает счётчики постов, которых ещё нет в памяти.
// Уже известные посты не трогает: их актуализируют Apply и Refresh.
func (r *Reconciler) Seed(posts ...models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range posts {
		if _, ok := r.shown.Peek(p.ID); ok {
			continue
		}
		r.shown.Add(p.ID, &entry{counts: p.Reactions})
	}
}

// Version — номер изменения счётчиков поста; 0, если пост не в памяти.
// Парный вызов для Refresh: берётся до чтения поста из хранилища.
func (r *Reconciler) Version(postID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.shown.Peek(postID); ok {
		return e.version
	}
	return 0
}

// Refresh заменяет счётчики значением, прочитанным из хранилища, если с момента
// Version(post.ID) они не менялись и локальных неподтверждённых изменений нет.
// Возвращает актуальные отображаемые счётчики.
func (r *Reconciler) Refresh(post models.Post, version uint64) models.Reactions {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.shown.Peek(post.ID)
	if !ok {
		r.shown.Add(post.ID, &entry{counts: post.Reactions})
		return post.Reactions
	}

	if e.version == version && e.pending == 0 {
		e.counts = post.Reactions
		e.version++
	}
	return e.counts
}

// Shown возвращает отображаемые счётчики поста.
func (r *Reconciler) Shown(postID string) (models.Reactions, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.shown.Get(postID)
	if !ok {
		return models.Reactions{}, false
	}
	return e.counts, true
}

// Forget убирает пост из отображаемых (после удаления).
func (r *Reconciler) Forget(postID string) {
	r.mu.Lock()
	r.shown.Remove(postID)
	r.mu.Unlock()
}

// entryLocked возвращает запись поста, создавая пустую. Вызывается под r.mu.
func (r *Reconciler) entryLocked(postID string) *entry {
	if e, ok := r.shown.Get(postID); ok {
		return e
	}
	e := &entry{}
	r.shown.Add(postID, e)
	return e
}

// Flags возвращает реакции устройства на пост.
func (r *Reconciler) Flags(ctx context.Context, deviceID, postID string) (Flags, error) {
	flags, err := loadFlags(ctx, r.devices.ForDevice(deviceID), postID)
	if err != nil {
		return nil, fmt.Errorf("reactions/Flags: %w", err)
	}
	return flags, nil
}

// Wait дожидается завершения фоновых синхронизаций.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func loadFlags(ctx context.Context, st devicestate.Store, postID string) (Flags, error) {
	raw, ok, err := st.Get(ctx, devicestate.ReactionsKey(postID))
	if err != nil {
		return nil, err
	}

	flags := Flags{}
	if !ok || raw == "" {
		return flags, nil
	}

	// Повреждённое значение трактуем как «реакций нет».
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return Flags{}, nil
	}

	for k, v := range flags {
		if !v || !k.Valid() {
			delete(flags, k)
		}
	}
	return flags, nil
}

func saveFlags(ctx context.Context, st devicestate.Store, postID string, flags Flags) error {
	key := devicestate.ReactionsKey(postID)
	if len(flags) == 0 {
		return st.Delete(ctx, key)
	}

	raw, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	return st.Set(ctx, key, string(raw))
}
