package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthhq/hearth/internal/app"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Application) {
	t.Helper()

	application := app.New(app.Options{})
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	srv := httptest.NewServer(NewRouter(application))
	t.Cleanup(func() {
		srv.Close()
		_ = application.Stop(context.Background())
	})
	return srv, application
}

func doJSON(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSession_AnonymousByDefault(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/session", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		State     string `json:"state"`
		UID       string `json:"uid"`
		Anonymous bool   `json:"anonymous"`
	}
	decodeBody(t, resp, &got)
	if got.State != "anonymous" || !got.Anonymous || got.UID == "" {
		t.Fatalf("session = %+v, want anonymous with uid", got)
	}
}

func TestTasks_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks/private", map[string]string{"text": "Buy milk"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", resp.StatusCode)
	}
	var task struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	decodeBody(t, resp, &task)
	if task.ID == "" || task.Text != "Buy milk" {
		t.Fatalf("task = %+v", task)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/tasks/private", nil)
	var listed []struct {
		ID        string `json:"id"`
		Completed bool   `json:"completed"`
	}
	decodeBody(t, resp, &listed)
	if len(listed) != 1 || listed[0].ID != task.ID {
		t.Fatalf("listed = %+v, want the created task", listed)
	}

	url := fmt.Sprintf("%s/tasks/private/%s/toggle", srv.URL, task.ID)
	resp = doJSON(t, http.MethodPost, url, map[string]any{"completed": true, "comment": "done at the shop"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("toggle status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/tasks/private", nil)
	decodeBody(t, resp, &listed)
	if len(listed) != 1 || !listed[0].Completed {
		t.Fatalf("listed after toggle = %+v, want completed", listed)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/tasks/private/%s", srv.URL, task.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/tasks/private", nil)
	var remaining []json.RawMessage
	decodeBody(t, resp, &remaining)
	if len(remaining) != 0 {
		t.Fatalf("got %d tasks after delete, want 0", len(remaining))
	}
}

func TestTasks_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks/private", map[string]string{"text": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank text status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/tasks/someday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown scope status = %d, want 400", resp.StatusCode)
	}
}

func TestGoals_SubTasksOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/goals", map[string]string{"title": "Plant a garden"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add goal status = %d, want 201", resp.StatusCode)
	}
	var goal struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &goal)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/goals/%s/subtasks", srv.URL, goal.ID), map[string]string{"text": "Buy seeds"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add subtask status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/goals", nil)
	var goals []struct {
		ID       string `json:"id"`
		SubTasks []struct {
			Text string `json:"text"`
		} `json:"subTasks"`
	}
	decodeBody(t, resp, &goals)
	if len(goals) != 1 || len(goals[0].SubTasks) != 1 || goals[0].SubTasks[0].Text != "Buy seeds" {
		t.Fatalf("goals = %+v, want one goal with one subtask", goals)
	}
}

func TestShoppingList_SharedSections(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/shopping", nil)
	var sections []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	decodeBody(t, resp, &sections)
	if len(sections) != 0 {
		t.Fatalf("fresh shopping list has %d sections, want 0", len(sections))
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/shopping/sections", map[string]string{"title": "Produce"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add section status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/shopping", nil)
	decodeBody(t, resp, &sections)
	if len(sections) != 1 || sections[0].Title != "Produce" {
		t.Fatalf("sections = %+v, want one Produce section", sections)
	}

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/shopping/sections/%s/items", srv.URL, sections[0].ID), map[string]string{"text": "Apples"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add item status = %d, want 204", resp.StatusCode)
	}
}

func TestEvents_DateValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/events", map[string]string{"title": "Picnic", "date": "next saturday"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/events", map[string]string{"title": "Picnic", "date": "2026-09-05"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add event status = %d, want 201", resp.StatusCode)
	}
}

func TestCalendar_MergesEventsAndDueTasks(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/events", map[string]string{"title": "Dentist", "date": "2026-09-10"})
	doJSON(t, http.MethodPost, srv.URL+"/tasks/private", map[string]string{"text": "Pay rates", "dueDate": "2026-09-01"})

	resp := doJSON(t, http.MethodGet, srv.URL+"/calendar", nil)
	var entries []struct {
		Date string `json:"date"`
		Kind string `json:"kind"`
	}
	decodeBody(t, resp, &entries)
	if len(entries) != 2 {
		t.Fatalf("got %d calendar entries, want 2", len(entries))
	}
	if entries[0].Kind != "task" || entries[1].Kind != "event" {
		t.Fatalf("entries = %+v, want task before event by date", entries)
	}
}

func TestFinance_NetBalanceOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/finance/recurring/income", map[string]any{"amount": 2000.0, "frequency": "monthly"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set income status = %d, want 204", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/finance/recurring/bills", map[string]any{"name": "Power", "amount": 400.0, "frequency": "fortnightly"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add bill status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/finance/net/weekly", nil)
	var got struct {
		Net float64 `json:"net"`
	}
	decodeBody(t, resp, &got)
	if got.Net != 300 {
		t.Fatalf("net = %v, want 300", got.Net)
	}
}

func TestMessages_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", map[string]string{"text": "Home by six"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/messages", nil)
	var msgs []struct {
		Text string `json:"text"`
	}
	decodeBody(t, resp, &msgs)
	if len(msgs) != 1 || msgs[0].Text != "Home by six" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestDevotional_BadDateRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/devotional/yesterday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSuggest_UnconfiguredIsServiceUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/suggest", map[string]string{"text": "Clean the garage"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/tasks/private", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
