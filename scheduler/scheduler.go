// Package scheduler decides which regions of a document get resolved and
// when. Regions near the viewport are queued, drained in small batches and
// resolved through an Orchestrator; the document is only touched while the
// scheduler's lock is held.
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/processor"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Default drain policy.
const (
	DefaultBatchSize   = 3
	DefaultBatchDelay  = 50 * time.Millisecond
	DefaultDrainDelay  = 100 * time.Millisecond
	DefaultMaxSegments = processor.DefaultMaxSegments
)

// State is the lifecycle position of a container.
type State int

const (
	Unseen State = iota
	Observing
	Pending
	Processing
	Processed
)

func (s State) String() string {
	switch s {
	case Observing:
		return "observing"
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Processed:
		return "processed"
	default:
		return "unseen"
	}
}

// PageResult reports what ProcessPage did.
type PageResult struct {
	Disabled  bool // Settings have the engine switched off
	Excluded  bool // The host is excluded by the site rules
	Pending   int  // Containers queued for resolution
	Observing int  // Containers waiting to scroll into view
}

// Scheduler owns one document and drives its resolution.
type Scheduler struct {
	mu       sync.Mutex
	doc      *processor.Document
	orch     *wordweave.Orchestrator
	replacer *processor.Replacer
	layout   *processor.FlowLayout
	viewport processor.Viewport
	logger   *slog.Logger
	session  string
	host     string

	batchSize   int
	batchDelay  time.Duration
	drainDelay  time.Duration
	maxSegments int

	states     map[*html.Node]State
	pending    []*html.Node
	processed  map[string]bool
	segments   []wordweave.Segment
	generation uint64
	applied    int

	draining bool
	closed   bool
	timer    *time.Timer
	busy     int
	idle     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// Option is a functional option for configuring the Scheduler.
type Option func(*Scheduler)

// WithHost sets the host checked against the site rules.
func WithHost(host string) Option {
	return func(s *Scheduler) {
		s.host = host
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithViewport sets the initial viewport.
func WithViewport(vp processor.Viewport) Option {
	return func(s *Scheduler) {
		s.viewport = vp
	}
}

// WithBatchSize sets how many regions resolve concurrently.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between request batches.
func WithBatchDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

// WithDrainDelay sets the debounce window of the drain.
func WithDrainDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.drainDelay = d
		}
	}
}

// WithMaxSegments caps the containers claimed by one drain.
func WithMaxSegments(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxSegments = n
		}
	}
}

// New creates a Scheduler for doc. Nothing happens until ProcessPage or
// Observe is called.
func New(doc *processor.Document, orch *wordweave.Orchestrator, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		doc:         doc,
		orch:        orch,
		viewport:    processor.DefaultViewport(),
		batchSize:   DefaultBatchSize,
		batchDelay:  DefaultBatchDelay,
		drainDelay:  DefaultDrainDelay,
		maxSegments: DefaultMaxSegments,
		session:     uuid.Must(uuid.NewV7()).String(),
		states:      make(map[*html.Node]State),
		processed:   make(map[string]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler", "session", s.session)
	s.replacer = processor.NewReplacer(orch.Settings().Style, s.logger)
	s.layout = processor.NewFlowLayout(doc.Root())
	return s
}

// Session returns the identifier of this scheduler's page session.
func (s *Scheduler) Session() string {
	return s.session
}

// ProcessPage applies the site rules, starts the memorize list in the
// background and observes the page.
func (s *Scheduler) ProcessPage(ctx context.Context) PageResult {
	settings := s.orch.Settings()
	if !settings.Enabled {
		return PageResult{Disabled: true}
	}
	if !settings.SiteAllowed(s.host) {
		s.logger.Info("site excluded", "host", s.host)
		return PageResult{Excluded: true}
	}

	if words := memorizeWords(settings); len(words) > 0 {
		s.mu.Lock()
		s.acquireLocked()
		s.mu.Unlock()
		go func() {
			defer s.release()
			if _, err := s.ProcessWords(ctx, words); err != nil {
				s.logger.Warn("memorize list failed", "error", err, "words", len(words))
			}
		}()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeLocked()
	res := PageResult{}
	for _, st := range s.states {
		switch st {
		case Pending:
			res.Pending++
		case Observing:
			res.Observing++
		}
	}
	return res
}

func memorizeWords(settings wordweave.Settings) []string {
	var words []string
	for _, w := range settings.MemorizeList {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Observe scans the document for containers. Unprocessed containers in the
// viewport are queued, the others wait for SetViewport. It returns the
// number of containers queued.
func (s *Scheduler) Observe() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observeLocked()
}

func (s *Scheduler) observeLocked() int {
	if s.closed {
		return 0
	}
	root := s.doc.Root()
	s.layout.Rebuild(root)
	s.segments = s.scanLocked()

	queued := 0
	for _, c := range processor.FindContainers(root) {
		switch s.states[c] {
		case Pending, Processing, Processed:
			continue
		}
		// An observing marker on a container this scheduler never queued
		// was left by an earlier pass over the same markup.
		if processor.InViewport(s.layout, s.viewport, c) {
			s.enqueueLocked(c)
			queued++
			continue
		}
		processor.ClearMarker(c, wordweave.AttrObserving)
		s.states[c] = Observing
	}
	if queued > 0 && !s.draining {
		s.scheduleDrainLocked()
	}
	return queued
}

// SetViewport moves the viewport and queues the observed containers that
// now intersect it. With AutoProcess set the whole page is rescanned, so
// containers never observed (added later, or restored) are picked up too.
// It returns the number of containers queued.
func (s *Scheduler) SetViewport(vp processor.Viewport) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = vp
	settings := s.orch.Settings()
	if s.closed || !settings.Enabled {
		return 0
	}
	if settings.AutoProcess {
		return s.observeLocked()
	}

	root := s.doc.Root()
	s.layout.Rebuild(root)
	queued := 0
	for _, c := range processor.FindContainers(root) {
		if s.states[c] != Observing {
			continue
		}
		if processor.InViewport(s.layout, vp, c) {
			s.enqueueLocked(c)
			queued++
		}
	}
	if queued > 0 && !s.draining {
		s.scheduleDrainLocked()
	}
	return queued
}

// NotifyMutation tells the scheduler the document changed outside its
// control. Detached containers are forgotten; new ones are observed when
// the engine is enabled with AutoProcess.
func (s *Scheduler) NotifyMutation() wordweave.DiffStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff := wordweave.DiffSegmentsWithContext(s.segments, s.scanLocked())
	for _, seg := range diff.Removed {
		if !processor.IsAttached(seg.Node) {
			delete(s.states, seg.Node)
		}
	}
	for _, m := range diff.Modified {
		if m.Old.Node != m.New.Node && !processor.IsAttached(m.Old.Node) {
			delete(s.states, m.Old.Node)
		}
	}
	stats := diff.Stats()
	if !diff.HasChanges() {
		return stats
	}
	s.logger.Debug("document changed", "added", stats.Added, "removed", stats.Removed, "modified", stats.Modified)
	if settings := s.orch.Settings(); settings.Enabled && settings.AutoProcess {
		s.observeLocked()
	} else {
		s.segments = s.scanLocked()
	}
	return stats
}

// scanLocked returns the segment of every current container.
func (s *Scheduler) scanLocked() []wordweave.Segment {
	var segs []wordweave.Segment
	for _, c := range processor.FindContainers(s.doc.Root()) {
		if seg, ok := processor.NewSegment(c); ok {
			segs = append(segs, seg)
		}
	}
	return segs
}

func (s *Scheduler) enqueueLocked(c *html.Node) {
	processor.SetMarker(c, wordweave.AttrObserving)
	s.states[c] = Pending
	s.pending = append(s.pending, c)
}

// scheduleDrainLocked (re)starts the debounce window.
func (s *Scheduler) scheduleDrainLocked() {
	if s.closed {
		return
	}
	if s.timer != nil && s.timer.Stop() {
		s.timer.Reset(s.drainDelay)
		return
	}
	s.acquireLocked()
	s.timer = time.AfterFunc(s.drainDelay, s.drain)
}

// job is one claimed region.
type job struct {
	seg    wordweave.Segment
	masked string
}

func (s *Scheduler) drain() {
	s.mu.Lock()
	if s.draining || s.closed {
		s.releaseLocked()
		s.mu.Unlock()
		return
	}
	s.draining = true
	gen := s.generation
	jobs := s.claimLocked()
	s.mu.Unlock()

	s.resolveAll(jobs, gen)

	s.mu.Lock()
	s.draining = false
	if len(s.pending) > 0 {
		s.scheduleDrainLocked()
	}
	s.releaseLocked()
	s.mu.Unlock()
}

// claimLocked takes up to maxSegments pending containers and turns the
// still eligible ones into jobs.
func (s *Scheduler) claimLocked() []job {
	n := min(len(s.pending), s.maxSegments)
	claimed := s.pending[:n]
	s.pending = append([]*html.Node(nil), s.pending[n:]...)

	learned := s.orch.Settings().LearnedSet()
	var jobs []job
	for _, c := range claimed {
		processor.ClearMarker(c, wordweave.AttrObserving)
		if !processor.IsAttached(c) || processor.Skipped(c) {
			delete(s.states, c)
			continue
		}
		seg, ok := processor.NewSegment(c)
		if !ok || s.processed[seg.Fingerprint] {
			s.states[c] = Processed
			continue
		}
		masked := wordweave.MaskWords(seg.Text, learned)
		if wordweave.TextLength(masked) < wordweave.MinMaskedLength {
			s.states[c] = Processed
			continue
		}
		s.states[c] = Processing
		jobs = append(jobs, job{seg: seg, masked: masked})
	}
	s.logger.Debug("drain claimed containers", "claimed", n, "jobs", len(jobs), "left", len(s.pending))
	return jobs
}

// resolveAll resolves jobs in batches, the regions of a batch concurrently.
// It stops before the next region once the scheduler is closed; the regions
// left unresolved stay in state processing.
func (s *Scheduler) resolveAll(jobs []job, gen uint64) {
	for i := 0; i < len(jobs); i += s.batchSize {
		batch := jobs[i:min(i+s.batchSize, len(jobs))]
		g, ctx := errgroup.WithContext(s.ctx)
		for _, j := range batch {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.resolve(j, gen)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			s.logger.Debug("drain stopped", "error", err, "unresolved", len(jobs)-i)
			return
		}

		if i+s.batchSize < len(jobs) && s.batchDelay > 0 {
			select {
			case <-time.After(s.batchDelay):
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// resolve applies the immediate replacements of one region and hands the
// deferred ones to a goroutine.
func (s *Scheduler) resolve(j job, gen uint64) {
	res := s.orch.Resolve(s.ctx, j.masked)

	s.mu.Lock()
	defer s.mu.Unlock()
	node := j.seg.Node
	if s.generation != gen || !processor.IsAttached(node) {
		return
	}

	learned := s.orch.Settings().LearnedSet()
	s.applied += s.replacer.Apply(node, filterWords(res.Immediate, learned, nil))
	s.processed[j.seg.Fingerprint] = true
	s.states[node] = Processed

	if res.Deferred != nil {
		s.acquireLocked()
		go s.applyDeferred(node, res.Deferred, gen)
	}
}

func (s *Scheduler) applyDeferred(node *html.Node, d *wordweave.Deferred, gen uint64) {
	defer s.release()
	reps, err := d.Wait(s.ctx)
	if err != nil || len(reps) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || !processor.IsAttached(node) {
		s.logger.Debug("discarding stale deferred result", "words", len(reps))
		return
	}
	learned := s.orch.Settings().LearnedSet()
	s.applied += s.replacer.Apply(node, filterWords(reps, learned, processor.AppliedOriginals(node)))
}

// filterWords drops replacements whose word is in any of the sets.
func filterWords(reps []wordweave.Replacement, sets ...map[string]bool) []wordweave.Replacement {
	out := make([]wordweave.Replacement, 0, len(reps))
next:
	for _, r := range reps {
		lw := strings.ToLower(r.Original)
		for _, set := range sets {
			if set[lw] {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// ProcessWords substitutes the given words wherever they occur, processed
// regions included. Translations come from the cache first and the provider
// second. It returns the number of substitutions made; on a provider
// failure the cached words are still applied and the error is returned.
func (s *Scheduler) ProcessWords(ctx context.Context, words []string) (int, error) {
	settings := s.orch.Settings()
	if !settings.Enabled || len(words) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	gen := s.generation
	contexts := processor.WordContexts(s.doc.Root(), words)
	s.mu.Unlock()
	if len(contexts) == 0 {
		return 0, nil
	}

	items, err := s.orch.TranslateWords(ctx, words)
	if len(items) == 0 {
		return 0, err
	}
	_, lang := wordweave.LanguagePair(strings.Join(words, " "), settings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return 0, err
	}
	count := 0
	for _, seg := range contexts {
		if !processor.IsAttached(seg.Node) {
			continue
		}
		reps := make([]wordweave.Replacement, 0, len(items))
		for _, it := range items {
			pos := wordweave.IndexFold(seg.Text, it.Original)
			if pos < 0 {
				pos = 0
			}
			reps = append(reps, wordweave.Replacement{
				Original:    it.Original,
				Translation: it.Translation,
				Phonetic:    it.Phonetic,
				Difficulty:  it.Difficulty.OrDefault(),
				Position:    pos,
				Lang:        lang,
			})
		}
		count += s.replacer.Apply(seg.Node, reps)
	}
	s.applied += count
	return count, err
}

// MarkLearned adds word to the learned list and reverts every substitution
// of it. It returns the number of substitutions reverted.
func (s *Scheduler) MarkLearned(word string) int {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lw := wordweave.LearnedWord{Original: word, AddedAt: time.Now().Unix()}
	for _, r := range processor.Substitutions(s.doc.Root()) {
		if strings.EqualFold(r.Original, word) {
			lw.Word = r.Translation
			lw.Difficulty = r.Difficulty
			break
		}
	}
	s.orch.AddLearned(lw)
	return processor.RestoreWord(s.doc.Root(), word)
}

// RestoreAll reverts every substitution, clears the region markers and
// forgets what was processed. Results still in flight are discarded.
func (s *Scheduler) RestoreAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked()
}

func (s *Scheduler) restoreLocked() int {
	s.generation++
	if s.timer != nil && s.timer.Stop() {
		s.releaseLocked()
	}
	s.pending = nil
	clear(s.states)
	clear(s.processed)
	s.segments = nil
	return processor.RestoreAll(s.doc.Root())
}

// Reconfigure switches to new settings: the page is restored and, when the
// engine is enabled, processed again.
func (s *Scheduler) Reconfigure(ctx context.Context, settings wordweave.Settings) PageResult {
	s.orch.UpdateSettings(settings)
	s.mu.Lock()
	s.replacer.Style = settings.Style
	n := s.restoreLocked()
	s.mu.Unlock()
	s.logger.Info("settings changed, page restored", "restored", n)
	return s.ProcessPage(ctx)
}

// State returns the lifecycle position of container n.
func (s *Scheduler) State(n *html.Node) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if processor.HasMarker(n, wordweave.AttrProcessed) {
		return Processed
	}
	return s.states[n]
}

// Applied returns the number of substitutions made since the scheduler was
// created.
func (s *Scheduler) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Substitutions lists the substitutions currently in the document.
func (s *Scheduler) Substitutions() []wordweave.Replacement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return processor.Substitutions(s.doc.Root())
}

// HTML renders the document.
func (s *Scheduler) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

// Wait blocks until no drain is scheduled or running and every deferred
// result has been applied or discarded.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.busy == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops scheduling. Pending drains are dropped and results still in
// flight are discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil && s.timer.Stop() {
		s.releaseLocked()
	}
	s.cancel()
}

func (s *Scheduler) acquireLocked() {
	if s.busy == 0 {
		s.idle = make(chan struct{})
	}
	s.busy++
}

func (s *Scheduler) releaseLocked() {
	s.busy--
	if s.busy == 0 {
		close(s.idle)
	}
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}
