package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/tasks"
)

func (t *taskRecord) view() tasks.Task {
	return tasks.Task{
		ID:          t.id,
		Title:       t.title,
		Description: t.description,
		Completed:   t.completed,
		UserID:      t.userID,
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
}

func (b *Backend) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	b.mu.Lock()
	out := make([]tasks.Task, 0)
	for _, t := range b.tasks {
		if t.userID == p.userID {
			out = append(out, t.view())
		}
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	b.mu.Lock()
	b.nextTaskID++
	t := &taskRecord{
		id:          b.nextTaskID,
		userID:      p.userID,
		title:       in.Title,
		description: in.Description,
		createdAt:   now,
		updatedAt:   now,
	}
	b.tasks[t.id] = t
	view := t.view()
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, view)
}

func (b *Backend) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	b.withOwnedTask(w, r, func(t *taskRecord) (int, any) {
		return http.StatusOK, t.view()
	})
}

func (b *Backend) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}
	b.withOwnedTask(w, r, func(t *taskRecord) (int, any) {
		t.title = in.Title
		t.description = in.Description
		t.updatedAt = time.Now().UTC().Truncate(time.Microsecond)
		return http.StatusOK, t.view()
	})
}

func (b *Backend) toggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	b.withOwnedTask(w, r, func(t *taskRecord) (int, any) {
		t.completed = !t.completed
		t.updatedAt = time.Now().UTC().Truncate(time.Microsecond)
		return http.StatusOK, t.view()
	})
}

func (b *Backend) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	b.withOwnedTask(w, r, func(t *taskRecord) (int, any) {
		delete(b.tasks, t.id)
		return http.StatusNoContent, nil
	})
}

// withOwnedTask runs fn under the backend lock on the task named by the path,
// answering 404 when it does not exist or belongs to someone else.
func (b *Backend) withOwnedTask(w http.ResponseWriter, r *http.Request, fn func(*taskRecord) (int, any)) {
	p, _ := principalFromContext(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "task id must be an integer")
		return
	}

	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok || t.userID != p.userID {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	status, body := fn(t)
	b.mu.Unlock()

	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, body)
}

func decodeTaskInput(w http.ResponseWriter, r *http.Request) (tasks.Input, bool) {
	var in tasks.Input
	if !decodeBody(w, r, &in) {
		return tasks.Input{}, false
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
		if d == "" {
			in.Description = nil
		}
	}
	if err := api.Validate(in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return tasks.Input{}, false
	}
	return in, true
}
