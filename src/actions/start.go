package actions

import (
	"context"
	"fmt"
	"log"

	apimodule "github.com/stake-plus/bountyboard/src/actions/api"
	boardmodule "github.com/stake-plus/bountyboard/src/actions/board"
	"github.com/stake-plus/bountyboard/src/bounty"
	sharedconfig "github.com/stake-plus/bountyboard/src/data/config"
	"github.com/stake-plus/bountyboard/src/events"
	"github.com/stake-plus/bountyboard/src/notify"
	"gorm.io/gorm"
)

// StartAll wires up enabled action modules around engine and starts the
// manager. db may be nil when running on the in-memory store.
func StartAll(ctx context.Context, db *gorm.DB, engine *bounty.Engine) (*Manager, error) {
	mgr := NewManager()
	fail := func(err error) (*Manager, error) {
		mgr.Abort(ctx)
		return nil, err
	}

	dispatchCfg := sharedconfig.LoadDispatchConfig(db)
	dispatcher := notify.NewDispatcher(engine, notify.Options{
		MaxElapsed:    dispatchCfg.MaxElapsed,
		FlushInterval: dispatchCfg.FlushInterval,
		OutboxLimit:   dispatchCfg.OutboxLimit,
	})
	if err := mgr.Add(dispatcher); err != nil {
		return fail(fmt.Errorf("actions: add dispatcher: %w", err))
	}

	eventsCfg := sharedconfig.LoadEventsConfig(db)
	if eventsCfg.Enabled {
		mod, err := events.NewModule(ctx, &eventsCfg)
		if err != nil {
			return fail(fmt.Errorf("actions: init events module: %w", err))
		}
		dispatcher.AddSink(mod.Publisher())
		if err := mgr.Add(mod); err != nil {
			return fail(fmt.Errorf("actions: add events module: %w", err))
		}
	} else {
		log.Printf("actions: event stream disabled (no REDIS_URL)")
	}

	boardCfg := sharedconfig.LoadBoardConfig(db)
	if boardCfg.Enabled {
		mod, err := boardmodule.NewModule(&boardCfg, engine, dispatcher)
		if err != nil {
			return fail(fmt.Errorf("actions: init board module: %w", err))
		}
		if err := mgr.Add(mod); err != nil {
			return fail(fmt.Errorf("actions: add board module: %w", err))
		}
	} else {
		log.Printf("actions: board module disabled (no DISCORD_TOKEN or ENABLE_BOARD=false)")
	}

	apiCfg := sharedconfig.LoadAPIConfig(db)
	if apiCfg.Enabled {
		mod, err := apimodule.NewModule(&apiCfg, engine, dispatcher)
		if err != nil {
			return fail(fmt.Errorf("actions: init api module: %w", err))
		}
		if err := mgr.Add(mod); err != nil {
			return fail(fmt.Errorf("actions: add api module: %w", err))
		}
	} else {
		log.Printf("actions: api module disabled (no JWT_SECRET)")
	}

	seeded := seedVerifiers(ctx, engine, boardCfg.BootstrapVerifiers)

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}

	dispatcher.Enqueue(seeded...)
	return mgr, nil
}

// seedVerifiers grants the Verifier role to configured members so a fresh
// board has someone to approve bounties.
func seedVerifiers(ctx context.Context, engine *bounty.Engine, ids []string) []bounty.Directive {
	var directives []bounty.Directive
	for _, id := range ids {
		out, err := engine.GrantVerifier(ctx, bounty.MemberID(id))
		if err != nil {
			log.Printf("actions: bootstrap verifier %s: %v", id, err)
			continue
		}
		directives = append(directives, out.Directives...)
	}
	if len(ids) > 0 {
		log.Printf("actions: %d bootstrap verifiers ensured", len(ids))
	}
	return directives
}
