// Package httpapi exposes the application over REST. Handlers decode,
// delegate to a service, and encode; all policy lives in the services.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hearthhq/hearth/internal/app"
	tasksdom "github.com/hearthhq/hearth/internal/app/domain/tasks"
	plannersvc "github.com/hearthhq/hearth/internal/app/services/planner"
	taskssvc "github.com/hearthhq/hearth/internal/app/services/tasks"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
)

type handler struct {
	app *app.Application
}

// NewRouter returns the REST API router. Middleware is attached by the
// caller so tests can exercise the bare routes.
func NewRouter(application *app.Application) *mux.Router {
	h := &handler{app: application}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	r.HandleFunc("/session", h.currentSession).Methods(http.MethodGet)
	r.HandleFunc("/session/signup", h.signUp).Methods(http.MethodPost)
	r.HandleFunc("/session/signin", h.signIn).Methods(http.MethodPost)
	r.HandleFunc("/session/signout", h.signOut).Methods(http.MethodPost)

	r.HandleFunc("/tasks/{scope}", h.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{scope}", h.addTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{scope}/{id}/toggle", h.toggleTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{scope}/{id}", h.deleteTask).Methods(http.MethodDelete)

	r.HandleFunc("/goals", h.listGoals).Methods(http.MethodGet)
	r.HandleFunc("/goals", h.addGoal).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}", h.deleteGoal).Methods(http.MethodDelete)
	r.HandleFunc("/goals/{id}/subtasks", h.addSubTask).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}/subtasks/{subId}/toggle", h.toggleSubTask).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}/subtasks/{subId}", h.deleteSubTask).Methods(http.MethodDelete)

	r.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events", h.addEvent).Methods(http.MethodPost)
	r.HandleFunc("/events/{id}", h.deleteEvent).Methods(http.MethodDelete)
	h.sectionRoutes(r.PathPrefix("/events/{id}").Subrouter(), h.eventPath)

	r.HandleFunc("/lists", h.listLists).Methods(http.MethodGet)
	r.HandleFunc("/lists", h.addList).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}", h.deleteList).Methods(http.MethodDelete)
	h.sectionRoutes(r.PathPrefix("/lists/{id}").Subrouter(), h.listPath)

	r.HandleFunc("/shopping", h.shoppingList).Methods(http.MethodGet)
	h.sectionRoutes(r.PathPrefix("/shopping").Subrouter(), func(*http.Request) string {
		return plannersvc.ShoppingListPath
	})

	r.HandleFunc("/calendar", h.calendar).Methods(http.MethodGet)

	r.HandleFunc("/meals/plan", h.mealPlan).Methods(http.MethodGet)
	r.HandleFunc("/meals/plan/{day}/{type}", h.setMealCell).Methods(http.MethodPut)
	r.HandleFunc("/meals/items", h.listMealItems).Methods(http.MethodGet)
	r.HandleFunc("/meals/items", h.addMealItem).Methods(http.MethodPost)
	r.HandleFunc("/meals/items/{id}", h.deleteMealItem).Methods(http.MethodDelete)

	r.HandleFunc("/devotional/{date}", h.devotionalEntry).Methods(http.MethodGet)
	r.HandleFunc("/devotional/{date}/thought", h.saveThought).Methods(http.MethodPost)

	r.HandleFunc("/health/metrics", h.listHealthMetrics).Methods(http.MethodGet)
	r.HandleFunc("/health/metrics", h.addHealthMetric).Methods(http.MethodPost)

	r.HandleFunc("/finance/transactions", h.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/finance/transactions", h.addTransaction).Methods(http.MethodPost)
	r.HandleFunc("/finance/transactions/{id}", h.deleteTransaction).Methods(http.MethodDelete)
	r.HandleFunc("/finance/recurring", h.recurring).Methods(http.MethodGet)
	r.HandleFunc("/finance/recurring/income", h.setIncome).Methods(http.MethodPut)
	r.HandleFunc("/finance/recurring/bills", h.addBill).Methods(http.MethodPost)
	r.HandleFunc("/finance/recurring/bills/{id}", h.deleteBill).Methods(http.MethodDelete)
	r.HandleFunc("/finance/net/{period}", h.netBalance).Methods(http.MethodGet)

	r.HandleFunc("/messages", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.sendMessage).Methods(http.MethodPost)

	r.HandleFunc("/suggest", h.suggest).Methods(http.MethodPost)

	return r
}

func (h *handler) identity() session.Identity { return h.app.Sessions.Current() }

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) currentSession(w http.ResponseWriter, r *http.Request) {
	identity := h.identity()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     h.app.Sessions.State(),
		"uid":       identity.UID,
		"email":     identity.Email,
		"anonymous": identity.Anonymous,
	})
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	identity, err := h.app.Sessions.SignUp(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	identity, err := h.app.Sessions.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	h.app.Sessions.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func taskScope(r *http.Request) tasksdom.Scope {
	return tasksdom.Scope(mux.Vars(r)["scope"])
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	switch taskScope(r) {
	case tasksdom.ScopePrivate:
		writeJSON(w, http.StatusOK, h.app.PrivateTasks.Items())
	case tasksdom.ScopeShared:
		writeJSON(w, http.StatusOK, h.app.SharedTasks.Items())
	default:
		writeError(w, apperrors.Validation("unknown task scope %q", mux.Vars(r)["scope"]))
	}
}

func (h *handler) addTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text    string `json:"text"`
		DueDate string `json:"dueDate"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	task, err := h.app.Tasks.Add(r.Context(), h.identity(), taskScope(r), payload.Text, payload.DueDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) toggleTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Completed bool   `json:"completed"`
		Comment   string `json:"comment"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	err := h.app.Tasks.Toggle(r.Context(), h.identity(), taskScope(r), mux.Vars(r)["id"], payload.Completed, payload.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Tasks.Delete(r.Context(), h.identity(), taskScope(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.GoalsFeed.Items())
}

func (h *handler) addGoal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	goal, err := h.app.Goals.AddGoal(r.Context(), h.identity(), payload.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *handler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Goals.DeleteGoal(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) addSubTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.app.Goals.AddSubTask(r.Context(), h.identity(), mux.Vars(r)["id"], payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *handler) toggleSubTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Completed bool `json:"completed"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := h.app.Goals.ToggleSubTask(r.Context(), h.identity(), vars["id"], vars["subId"], payload.Completed); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteSubTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.app.Goals.DeleteSubTask(r.Context(), h.identity(), vars["id"], vars["subId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Events.Items())
}

func (h *handler) addEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	event, err := h.app.Planner.AddEvent(r.Context(), h.identity(), payload.Title, payload.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Planner.DeleteEvent(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listLists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Lists.Items())
}

func (h *handler) addList(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.app.Planner.AddList(r.Context(), h.identity(), payload.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (h *handler) deleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Planner.DeleteList(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) eventPath(r *http.Request) string {
	return plannersvc.EventPath(h.identity(), mux.Vars(r)["id"])
}

func (h *handler) listPath(r *http.Request) string {
	return plannersvc.ListPath(h.identity(), mux.Vars(r)["id"])
}

// sectionRoutes mounts the shared section/item mutators under a parent
// resolved per request. Events, lists, and the shopping list all share
// these.
func (h *handler) sectionRoutes(r *mux.Router, path func(*http.Request) string) {
	r.HandleFunc("/sections", func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(req.Body, &payload); err != nil {
			writeError(w, err)
			return
		}
		if err := h.app.Planner.AddSection(req.Context(), path(req), payload.Title); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/sections/{sectionId}", func(w http.ResponseWriter, req *http.Request) {
		if err := h.app.Planner.DeleteSection(req.Context(), path(req), mux.Vars(req)["sectionId"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	r.HandleFunc("/sections/{sectionId}/items", func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(req.Body, &payload); err != nil {
			writeError(w, err)
			return
		}
		if err := h.app.Planner.AddItem(req.Context(), path(req), mux.Vars(req)["sectionId"], payload.Text); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/sections/{sectionId}/items/{itemId}/toggle", func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		if err := h.app.Planner.ToggleItem(req.Context(), path(req), vars["sectionId"], vars["itemId"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/sections/{sectionId}/items/{itemId}", func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		if err := h.app.Planner.DeleteItem(req.Context(), path(req), vars["sectionId"], vars["itemId"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
}

func (h *handler) shoppingList(w http.ResponseWriter, r *http.Request) {
	doc, err := h.app.Planner.Shopping(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handler) calendar(w http.ResponseWriter, r *http.Request) {
	identity := h.identity()
	entries, err := h.app.Planner.Calendar(r.Context(), identity,
		taskssvc.Collection(identity, tasksdom.ScopePrivate),
		taskssvc.SharedCollection,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) mealPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.app.Meals.Plan(r.Context(), h.identity())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *handler) setMealCell(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	if err := h.app.Meals.SetCell(r.Context(), h.identity(), vars["day"], vars["type"], payload.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listMealItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.MealItems.Items())
}

func (h *handler) addMealItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.app.Meals.AddItem(r.Context(), h.identity(), payload.Name, payload.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handler) deleteMealItem(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Meals.DeleteItem(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) devotionalEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.app.Devotional.Entry(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handler) saveThought(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Thought string `json:"thought"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Devotional.SaveThought(r.Context(), h.identity(), mux.Vars(r)["date"], payload.Thought); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listHealthMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.HealthMetrics.Items())
}

func (h *handler) addHealthMetric(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
		Note  string  `json:"note"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	metric, err := h.app.Health.Add(r.Context(), h.identity(), payload.Type, payload.Value, payload.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, metric)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Transactions.Items())
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount      float64 `json:"amount"`
		Type        string  `json:"type"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.app.Finance.AddTransaction(r.Context(), h.identity(), payload.Amount, payload.Type, payload.Category, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Finance.DeleteTransaction(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) recurring(w http.ResponseWriter, r *http.Request) {
	rec, err := h.app.Finance.Recurring(r.Context(), h.identity())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) setIncome(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount    float64 `json:"amount"`
		Frequency string  `json:"frequency"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Finance.SetIncome(r.Context(), h.identity(), payload.Amount, payload.Frequency); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) addBill(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name      string  `json:"name"`
		Amount    float64 `json:"amount"`
		DueDate   string  `json:"dueDate"`
		Frequency string  `json:"frequency"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	bill, err := h.app.Finance.AddBill(r.Context(), h.identity(), payload.Name, payload.Amount, payload.DueDate, payload.Frequency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (h *handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Finance.DeleteBill(r.Context(), h.identity(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) netBalance(w http.ResponseWriter, r *http.Request) {
	net, err := h.app.Finance.NetBalance(r.Context(), h.identity(), mux.Vars(r)["period"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"net": net})
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Hub.Items())
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	msg, err := h.app.Messages.Send(r.Context(), h.identity(), payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *handler) suggest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	steps, err := h.app.Suggest.SuggestSubtasks(r.Context(), payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"steps": steps})
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return apperrors.Validation("decode request: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.KindConfiguration:
		status = http.StatusServiceUnavailable
	case apperrors.KindTransport:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
