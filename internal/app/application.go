// Package app ties the household services, feeds, and session together and
// manages their lifecycle.
package app

import (
	"context"

	financedom "github.com/hearthhq/hearth/internal/app/domain/finance"
	goalsdom "github.com/hearthhq/hearth/internal/app/domain/goals"
	healthdom "github.com/hearthhq/hearth/internal/app/domain/health"
	mealsdom "github.com/hearthhq/hearth/internal/app/domain/meals"
	messagesdom "github.com/hearthhq/hearth/internal/app/domain/messages"
	plannerdom "github.com/hearthhq/hearth/internal/app/domain/planner"
	tasksdom "github.com/hearthhq/hearth/internal/app/domain/tasks"
	devotionalsvc "github.com/hearthhq/hearth/internal/app/services/devotional"
	financesvc "github.com/hearthhq/hearth/internal/app/services/finance"
	goalssvc "github.com/hearthhq/hearth/internal/app/services/goals"
	healthsvc "github.com/hearthhq/hearth/internal/app/services/health"
	mealssvc "github.com/hearthhq/hearth/internal/app/services/meals"
	messagessvc "github.com/hearthhq/hearth/internal/app/services/messages"
	plannersvc "github.com/hearthhq/hearth/internal/app/services/planner"
	suggestsvc "github.com/hearthhq/hearth/internal/app/services/suggest"
	taskssvc "github.com/hearthhq/hearth/internal/app/services/tasks"
	"github.com/hearthhq/hearth/internal/feed"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Options configures the application. A nil Store defaults to the in-memory
// gateway; a nil Verses fetcher leaves devotional entries verse-less.
type Options struct {
	Store   store.Gateway
	Auth    session.Authenticator
	Verses  devotionalsvc.VerseFetcher
	Suggest suggestsvc.Config
	Log     *logger.Logger
}

// Application owns one feed per feature and rewires every feed whenever the
// session identity changes. Each feature keeps its own mirror; there is no
// shared state container across features.
type Application struct {
	Sessions *session.Manager

	Tasks      *taskssvc.Service
	Goals      *goalssvc.Service
	Planner    *plannersvc.Service
	Meals      *mealssvc.Service
	Devotional *devotionalsvc.Service
	Health     *healthsvc.Service
	Finance    *financesvc.Service
	Messages   *messagessvc.Service
	Suggest    *suggestsvc.Service

	PrivateTasks  *feed.Feed[tasksdom.Task]
	SharedTasks   *feed.Feed[tasksdom.Task]
	GoalsFeed     *feed.Feed[goalsdom.Goal]
	Events        *feed.Feed[plannerdom.Event]
	Lists         *feed.Feed[plannerdom.List]
	MealItems     *feed.Feed[mealsdom.Item]
	HealthMetrics *feed.Feed[healthdom.Metric]
	Transactions  *feed.Feed[financedom.Transaction]
	Hub           *feed.Feed[messagesdom.Message]

	store     *trackingGateway
	refresher *devotionalsvc.Refresher
	log       *logger.Logger
}

// New builds a fully wired application.
func New(opts Options) *Application {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}
	gw := opts.Store
	if gw == nil {
		gw = store.NewMemory()
	}
	tracked := newTrackingGateway(gw)

	a := &Application{
		Sessions:   session.NewManager(opts.Auth, log.WithField("component", "session")),
		Tasks:      taskssvc.New(tracked, log.WithField("component", "tasks")),
		Goals:      goalssvc.New(tracked, log.WithField("component", "goals")),
		Planner:    plannersvc.New(tracked, log.WithField("component", "planner")),
		Meals:      mealssvc.New(tracked, log.WithField("component", "meals")),
		Devotional: devotionalsvc.New(tracked, opts.Verses, log.WithField("component", "devotional")),
		Health:     healthsvc.New(tracked, log.WithField("component", "health")),
		Finance:    financesvc.New(tracked, log.WithField("component", "finance")),
		Messages:   messagessvc.New(tracked, log.WithField("component", "messages")),
		Suggest:    suggestsvc.New(opts.Suggest),
		store:      tracked,
		log:        log,
	}
	a.refresher = devotionalsvc.NewRefresher(a.Devotional, log.WithField("component", "devotional-refresher"))

	a.PrivateTasks = feed.New(feed.Config[tasksdom.Task]{
		Store: tracked,
		Path: func(id session.Identity) string {
			return taskssvc.Collection(id, tasksdom.ScopePrivate)
		},
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: tasksdom.Decode,
		Less:   tasksdom.Less,
		Log:    log.WithField("feed", "privateTasks"),
	})
	a.SharedTasks = feed.New(feed.Config[tasksdom.Task]{
		Store:  tracked,
		Path:   sharedPath(taskssvc.SharedCollection),
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: tasksdom.Decode,
		Less:   tasksdom.Less,
		Log:    log.WithField("feed", "sharedTasks"),
	})
	a.GoalsFeed = feed.New(feed.Config[goalsdom.Goal]{
		Store:  tracked,
		Path:   goalssvc.Collection,
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: goalsdom.Decode,
		Less:   goalsdom.Less,
		Child: &feed.Child[goalsdom.Goal]{
			Collection: goalsdom.SubTasksCollection,
			Query:      store.Query{OrderBy: "createdAt"},
			Attach:     goalsdom.Attach,
		},
		Log: log.WithField("feed", "goals"),
	})
	a.Events = feed.New(feed.Config[plannerdom.Event]{
		Store:  tracked,
		Path:   plannersvc.EventsCollection,
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: plannerdom.DecodeEvent,
		Less:   plannerdom.EventLess,
		Log:    log.WithField("feed", "events"),
	})
	a.Lists = feed.New(feed.Config[plannerdom.List]{
		Store:  tracked,
		Path:   plannersvc.ListsCollection,
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: plannerdom.DecodeList,
		Less:   plannerdom.ListLess,
		Log:    log.WithField("feed", "lists"),
	})
	a.MealItems = feed.New(feed.Config[mealsdom.Item]{
		Store:  tracked,
		Path:   mealssvc.ItemsCollection,
		Query:  store.Query{OrderBy: "createdAt"},
		Decode: mealsdom.DecodeItem,
		Less:   mealsdom.ItemLess,
		Log:    log.WithField("feed", "mealItems"),
	})
	a.HealthMetrics = feed.New(feed.Config[healthdom.Metric]{
		Store:  tracked,
		Path:   healthsvc.Collection,
		Query:  store.Query{OrderBy: "createdAt", Desc: true},
		Decode: healthdom.Decode,
		Less:   healthdom.Less,
		Log:    log.WithField("feed", "health"),
	})
	a.Transactions = feed.New(feed.Config[financedom.Transaction]{
		Store:  tracked,
		Path:   financesvc.TransactionsCollection,
		Query:  store.Query{OrderBy: "createdAt", Desc: true},
		Decode: financedom.DecodeTransaction,
		Less:   financedom.TransactionLess,
		Log:    log.WithField("feed", "transactions"),
	})
	a.Hub = feed.New(feed.Config[messagesdom.Message]{
		Store:  tracked,
		Path:   sharedPath(messagesdom.Collection),
		Query:  store.Query{OrderBy: "createdAt", Desc: true, Limit: messagesdom.RecentLimit},
		Decode: messagesdom.Decode,
		Less:   messagesdom.Less,
		Limit:  messagesdom.RecentLimit,
		Log:    log.WithField("feed", "hub"),
	})

	// Registered before Start so the initial identity rewires too.
	a.Sessions.OnChange(a.rewire)
	return a
}

// sharedPath exposes a household-wide collection to any active identity.
func sharedPath(collection string) func(session.Identity) string {
	return func(id session.Identity) string {
		if id.Zero() {
			return ""
		}
		return collection
	}
}

// Start resolves the session (which wires all feeds through the change
// callback) and begins the daily verse refresh.
func (a *Application) Start(ctx context.Context) error {
	if _, err := a.Sessions.Start(ctx); err != nil {
		return err
	}
	return a.refresher.Start()
}

// Stop signs out, stops every feed, and halts the refresher. After Stop no
// store subscription handle remains open.
func (a *Application) Stop(ctx context.Context) error {
	a.Sessions.SignOut()
	a.refresher.Stop()
	for _, f := range a.feeds() {
		f.Stop()
	}
	a.log.Info("application stopped")
	return nil
}

// OpenHandles reports the number of live store subscriptions. Zero after
// Stop; anything else is a leak.
func (a *Application) OpenHandles() int {
	return a.store.open()
}

type stoppable interface{ Stop() }

func (a *Application) feeds() []stoppable {
	return []stoppable{
		a.PrivateTasks, a.SharedTasks, a.GoalsFeed, a.Events, a.Lists,
		a.MealItems, a.HealthMetrics, a.Transactions, a.Hub,
	}
}

func (a *Application) rewire(identity session.Identity) {
	if identity.Zero() {
		for _, f := range a.feeds() {
			f.Stop()
		}
		a.log.Info("feeds cleared")
		return
	}

	type startable interface {
		Start(session.Identity) error
	}
	for _, f := range []startable{
		a.PrivateTasks, a.SharedTasks, a.GoalsFeed, a.Events, a.Lists,
		a.MealItems, a.HealthMetrics, a.Transactions, a.Hub,
	} {
		if err := f.Start(identity); err != nil {
			a.log.WithError(err).Warn("feed start failed")
		}
	}
	a.log.WithField("uid", identity.UID).Info("feeds rewired")
}
