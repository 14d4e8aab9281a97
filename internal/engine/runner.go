package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonikukoc07/yt-video-alerts/internal/feed"
	"github.com/tonikukoc07/yt-video-alerts/internal/live"
	"github.com/tonikukoc07/yt-video-alerts/internal/notify"
	"github.com/tonikukoc07/yt-video-alerts/internal/state"
	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// Resolver resolves live status for the cycle's candidate items.
type Resolver interface {
	Resolve(ctx context.Context, items []feed.Item) map[string]live.Status
}

// Runner executes one evaluation cycle: observe, decide, act, persist.
//
// Side effects are at-least-once and records at-most-once: a failed transport
// call leaves its record absent so the next cycle retries, and an interrupted
// cycle re-evaluates from the last persisted document.
type Runner struct {
	source   feed.Source
	resolver Resolver
	sink     notify.Sink
	store    state.Store
	render   *notify.Renderer
	log      logx.Logger

	windowLimit int
	dryRun      bool
	now         func() time.Time
}

type Options struct {
	Source      feed.Source
	Resolver    Resolver
	Sink        notify.Sink
	Store       state.Store
	Renderer    *notify.Renderer
	Log         logx.Logger
	WindowLimit int
	DryRun      bool

	// Now overrides the clock (tests only).
	Now func() time.Time
}

func New(opt Options) *Runner {
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	limit := opt.WindowLimit
	if limit <= 0 {
		limit = 15
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		source:      opt.Source,
		resolver:    opt.Resolver,
		sink:        opt.Sink,
		store:       opt.Store,
		render:      opt.Renderer,
		log:         log,
		windowLimit: limit,
		dryRun:      opt.DryRun,
		now:         now,
	}
}

// Cycle runs one evaluation pass. The returned error is cycle-fatal
// (unreachable feed, unwritable state); per-item and per-call transport
// failures are absorbed and retried naturally on the next cycle.
func (r *Runner) Cycle(ctx context.Context) error {
	items, err := r.source.ListRecent(ctx, r.windowLimit)
	if err != nil {
		return fmt.Errorf("list recent items: %w", err)
	}
	if len(items) == 0 {
		r.log.Info("no items in the observable window")
		return nil
	}

	doc, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	statuses := r.resolver.Resolve(ctx, items)

	if !doc.Baselined() {
		doc.AdvanceCursor(NewestPublish(items))
		r.log.Info("baseline established; existing items stay quiet",
			logx.Int("items", len(items)),
			logx.Time("cursor", doc.Cursor.LastSeen))
		if r.dryRun {
			return nil
		}
		return r.store.Save(ctx, doc)
	}

	decisions := Plan(doc, items, statuses)

	if r.dryRun {
		for _, d := range decisions {
			r.log.Info("dry-run: would act",
				logx.String("op", d.Op.String()),
				logx.String("video", d.Item.ID),
				logx.String("kind", string(d.Kind)))
		}
		if target, kind, ok := SelectPinTarget(items, statuses); ok {
			r.log.Info("dry-run: highlight target",
				logx.String("video", target.ID),
				logx.String("kind", string(kind)))
		}
		return nil
	}

	for _, d := range decisions {
		r.execute(ctx, doc, d)
	}

	r.reconcilePin(ctx, doc, items, statuses)

	doc.AdvanceCursor(NextCursor(doc, items, decisions))
	if err := r.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, doc *state.Document, d Decision) {
	switch d.Op {
	case OpNotify:
		msg := r.render.Render(d.Kind, d.Item)
		ref, err := r.sink.Post(ctx, msg)
		if err != nil {
			r.log.Warn("notification post failed; retrying next cycle",
				logx.String("video", d.Item.ID),
				logx.String("kind", string(d.Kind)),
				logx.Err(err))
			return
		}
		doc.Upsert(state.Record{
			VideoID:    d.Item.ID,
			Kind:       d.Kind,
			MessageID:  ref.MessageID,
			ChatID:     ref.ChatID,
			NotifiedAt: r.now().UTC(),
		})
		r.log.Info("notification sent",
			logx.String("video", d.Item.ID),
			logx.String("kind", string(d.Kind)),
			logx.Int("message_id", ref.MessageID))

	case OpConvert:
		r.convert(ctx, doc, d.Item, d.From)
	}
}

// convert turns the live announcement for item into the video presentation.
// Preferred path is an in-place edit reusing the message id; when the sink
// reports the message cannot be edited, a fresh video message supersedes it
// and the old one is deleted best-effort. The video record is only written
// once the replacement message actually exists, which is what makes the
// operation safe to retry.
func (r *Runner) convert(ctx context.Context, doc *state.Document, item feed.Item, from state.Record) (notify.Ref, bool) {
	msg := r.render.Render(state.KindVideo, item)
	fromRef := notify.Ref{ChatID: from.ChatID, MessageID: from.MessageID}

	if !fromRef.IsZero() {
		err := r.sink.Edit(ctx, fromRef, msg)
		if err == nil {
			doc.Upsert(state.Record{
				VideoID:    item.ID,
				Kind:       state.KindVideo,
				MessageID:  from.MessageID,
				ChatID:     from.ChatID,
				NotifiedAt: r.now().UTC(),
			})
			r.log.Info("broadcast ended; announcement converted in place",
				logx.String("video", item.ID),
				logx.Int("message_id", from.MessageID))
			return fromRef, true
		}
		if !errors.Is(err, notify.ErrCannotEdit) {
			r.log.Warn("convert edit failed; retrying next cycle",
				logx.String("video", item.ID), logx.Err(err))
			return notify.Ref{}, false
		}
	}

	ref, err := r.sink.Post(ctx, msg)
	if err != nil {
		r.log.Warn("convert repost failed; retrying next cycle",
			logx.String("video", item.ID), logx.Err(err))
		return notify.Ref{}, false
	}
	doc.Upsert(state.Record{
		VideoID:    item.ID,
		Kind:       state.KindVideo,
		MessageID:  ref.MessageID,
		ChatID:     ref.ChatID,
		NotifiedAt: r.now().UTC(),
	})

	if !fromRef.IsZero() {
		if err := r.sink.Delete(ctx, fromRef); err != nil {
			r.log.Warn("superseded live message not deleted",
				logx.Int("message_id", fromRef.MessageID), logx.Err(err))
		}
		if doc.Pin.MessageID == fromRef.MessageID {
			// The pinned message is gone; let reconciliation pin anew.
			doc.Pin = state.Pin{}
		}
	}
	r.log.Info("broadcast ended; announcement reposted as video",
		logx.String("video", item.ID), logx.Int("message_id", ref.MessageID))
	return ref, true
}

// reconcilePin drives the singleton highlight toward the selected target.
// Any failure leaves the recorded pin untouched so the next cycle retries;
// the invariant is that two self-authored pins are never outstanding, which
// is why a failed unpin aborts the change rather than pinning anyway.
func (r *Runner) reconcilePin(ctx context.Context, doc *state.Document, items []feed.Item, statuses map[string]live.Status) {
	target, kind, ok := SelectPinTarget(items, statuses)
	if !ok {
		return
	}
	if doc.Pin.VideoID == target.ID && doc.Pin.Kind == kind && doc.Pin.MessageID != 0 {
		return // already highlighted
	}

	ref, kindUsed, ok := r.ensurePinnable(ctx, doc, target, kind)
	if !ok {
		return
	}
	if doc.Pin.MessageID == ref.MessageID && doc.Pin.VideoID == target.ID {
		// Same underlying message under a different kind label; just relabel.
		doc.Pin.Kind = kindUsed
		return
	}

	prev := doc.Pin
	if !prev.IsZero() {
		if err := r.sink.Unpin(ctx, notify.Ref{ChatID: prev.ChatID, MessageID: prev.MessageID}); err != nil {
			r.log.Warn("unpin of previous highlight failed; keeping it for now",
				logx.Int("message_id", prev.MessageID), logx.Err(err))
			return
		}
		doc.Pin = state.Pin{}
	}

	if err := r.sink.Pin(ctx, ref); err != nil {
		r.log.Warn("pin failed; highlight unset until next cycle",
			logx.String("video", target.ID), logx.Err(err))
		return
	}
	doc.Pin = state.Pin{
		MessageID: ref.MessageID,
		ChatID:    ref.ChatID,
		VideoID:   target.ID,
		Kind:      kindUsed,
	}
	r.log.Info("highlight updated",
		logx.String("video", target.ID),
		logx.String("kind", string(kindUsed)),
		logx.Int("message_id", ref.MessageID))
}

// ensurePinnable returns a message to pin for (target, kind), creating one
// through the normal create/convert path when necessary. This is the one
// place pin logic may cause a notification — but never for an item at or
// before the baseline cursor, which stays quiet everywhere.
func (r *Runner) ensurePinnable(ctx context.Context, doc *state.Document, target feed.Item, kind state.Kind) (notify.Ref, state.Kind, bool) {
	if rec := doc.Find(target.ID, kind); rec != nil && rec.MessageID != 0 {
		return notify.Ref{ChatID: rec.ChatID, MessageID: rec.MessageID}, kind, true
	}

	if kind == state.KindVideo {
		if lrec := doc.Find(target.ID, state.KindLive); lrec != nil && lrec.MessageID != 0 {
			// Broadcast over but the conversion has not landed yet; do it now.
			if ref, ok := r.convert(ctx, doc, target, *lrec); ok {
				return ref, kind, true
			}
			return notify.Ref{}, kind, false
		}
	} else {
		if vrec := doc.Find(target.ID, state.KindVideo); vrec != nil && vrec.MessageID != 0 {
			// Terminal as a video; highlight that message instead of
			// announcing the same item a second time.
			return notify.Ref{ChatID: vrec.ChatID, MessageID: vrec.MessageID}, state.KindVideo, true
		}
	}

	if !target.PublishedAt.After(doc.Cursor.LastSeen) {
		r.log.Debug("highlight target predates baseline; not creating a message",
			logx.String("video", target.ID))
		return notify.Ref{}, kind, false
	}

	msg := r.render.Render(kind, target)
	ref, err := r.sink.Post(ctx, msg)
	if err != nil {
		r.log.Warn("highlight post failed; retrying next cycle",
			logx.String("video", target.ID), logx.Err(err))
		return notify.Ref{}, kind, false
	}
	doc.Upsert(state.Record{
		VideoID:    target.ID,
		Kind:       kind,
		MessageID:  ref.MessageID,
		ChatID:     ref.ChatID,
		NotifiedAt: r.now().UTC(),
	})
	return ref, kind, true
}
