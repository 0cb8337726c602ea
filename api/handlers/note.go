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

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/config"
	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// Note exported for testing purposes
type Note struct {
	DB databases.NoteDatabase
}

// NotesByProjectIDHandler returns all notes for a project
func (n Note) NotesByProjectIDHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := n.DB.Find(ctx, bson.M{"projectID": projectID}, options.Find().SetSort(bson.M{"_id": -1}))
	if err != nil {
		config.ErrorStatus("failed to get notes", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Note{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateNoteHandler creates a new note, attributing it to the caller
func (n Note) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	var note models.Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if note.ProjectID == "" || note.Body == "" {
		config.ErrorStatus("note projectID and body are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	if user, ok := api.UserFromContext(r.Context()); ok {
		note.AuthorID = user.ID()
	}

	note.ID = primitive.NewObjectID()
	note.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := n.DB.InsertOne(ctx, note)
	if err != nil {
		config.ErrorStatus("failed to create note", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Note created successfully",
		"id":      note.ID.Hex(),
		"note":    note,
	})
}

// DeleteNoteHandler deletes a note by its ID
func (n Note) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["note_id"]

	nID, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = n.DB.DeleteOne(ctx, bson.M{"_id": nID})
	if err != nil {
		config.ErrorStatus("failed to delete note", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Note deleted successfully",
	})
}
