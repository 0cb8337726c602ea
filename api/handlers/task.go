package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/config"
	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// Task exported for testing purposes
type Task struct {
	DB databases.TaskDatabase
}

// TaskByIDHandler returns a task by ID
func (t Task) TaskByIDHandler(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	zap.S().Debugf("task_id: %v", taskID)

	tID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := t.DB.FindOne(ctx, bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to get task by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// TasksByProjectIDHandler returns all tasks for a project
func (t Task) TasksByProjectIDHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	status := r.URL.Query().Get("status")
	assigneeID := r.URL.Query().Get("assigneeId")

	zap.S().Debugf("project_id: '%v'", projectID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{
		"projectID": projectID,
	}
	if status != "" {
		filter["status"] = status
	}
	if assigneeID != "" {
		filter["assigneeID"] = assigneeID
	}

	dbResp, err := t.DB.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": -1}))
	if err != nil {
		config.ErrorStatus("failed to get tasks", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Task{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateTaskHandler creates a new task
func (t Task) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if task.Title == "" || task.ProjectID == "" {
		config.ErrorStatus("task title and projectID are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	task.ID = primitive.NewObjectID()
	if task.Status == "" {
		task.Status = "open"
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	task.CreatedAt = now
	task.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := t.DB.InsertOne(ctx, task)
	if err != nil {
		config.ErrorStatus("failed to create task", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Task created successfully",
		"id":      task.ID.Hex(),
		"task":    task,
	})
}

// UpdateTaskHandler updates a task's details
func (t Task) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	tID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updateData map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	delete(updateData, "_id")
	updateData["updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = t.DB.UpdateOne(ctx, bson.M{"_id": tID}, bson.M{"$set": updateData})
	if err != nil {
		config.ErrorStatus("failed to update task", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Task updated successfully",
	})
}

// DeleteTaskHandler deletes a task by its ID
func (t Task) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	tID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = t.DB.DeleteOne(ctx, bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to delete task", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Task deleted successfully",
	})
}
