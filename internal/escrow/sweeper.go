package escrow

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regconline/afrilearn/internal/services"
)

// sweepLockKey is the advisory lock id guarding the sweep; whichever instance
// holds it runs the pass, everyone else skips.
const sweepLockKey = 815001

// Sweeper periodically resolves due escrow payments and expires stale pending
// ones. It is the only path that releases escrowed funds.
type Sweeper struct {
	db       *pgxpool.Pool
	escrow   *services.EscrowService
	interval time.Duration
}

func NewSweeper(db *pgxpool.Pool, escrow *services.EscrowService, interval time.Duration) *Sweeper {
	return &Sweeper{db: db, escrow: escrow, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		log.Printf("escrow sweep: acquire connection: %v", err)
		return
	}
	defer conn.Release()

	// Session-level advisory lock keeps concurrent deployments from running
	// overlapping sweeps. Resolution itself is also guarded per payment, so
	// losing the lock race is never unsafe, just redundant work avoided.
	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", sweepLockKey).Scan(&acquired); err != nil {
		log.Printf("escrow sweep: advisory lock: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", sweepLockKey); err != nil {
			log.Printf("escrow sweep: advisory unlock: %v", err)
		}
	}()

	now := time.Now().UTC()
	if failed, err := s.escrow.FailStalePending(ctx, now); err != nil {
		log.Printf("escrow sweep: expire pending: %v", err)
	} else if failed > 0 {
		log.Printf("escrow sweep: failed %d stale pending payments", failed)
	}

	if resolved, err := s.escrow.ReleaseDue(ctx, now); err != nil {
		log.Printf("escrow sweep: release due: %v", err)
	} else if resolved > 0 {
		log.Printf("escrow sweep: resolved %d escrowed payments", resolved)
	}
}
