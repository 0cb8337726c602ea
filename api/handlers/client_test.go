package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"

	"github.com/brightdesk/agency-api/api/handlers"
	"github.com/brightdesk/agency-api/databases"
	mocksdb "github.com/brightdesk/agency-api/databases/mocks"
	"github.com/brightdesk/agency-api/models"
)

func TestClient_ClientByIDHandlerBadHex(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/client/1234", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"client_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &mocksdb.DatabaseHelper{}

	clientDatabase := databases.NewClientDatabase(db)
	u := handlers.Client{
		DB: clientDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(u.ClientByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestClient_ClientByIDHandlerFailedToFindOne(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/client/5fc51f58c72ff10004dca999", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"client_id": "5fc51f58c72ff10004dca999"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).Return(errors.New("mongo: no documents in result"))
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*mocksdb.DatabaseHelper).On("Collection", "clients").Return(conn)

	clientDatabase := databases.NewClientDatabase(db)
	u := handlers.Client{
		DB: clientDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(u.ClientByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get client by ID", Error: "mongo: no documents in result"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestClient_CreateClientHandlerMissingName(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/client", strings.NewReader(`{"email":"ops@acme.test"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &mocksdb.DatabaseHelper{}

	clientDatabase := databases.NewClientDatabase(db)
	u := handlers.Client{
		DB: clientDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(u.CreateClientHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestClient_CreateClientHandler(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/client", strings.NewReader(`{"name":"Acme Co","email":"ops@acme.test"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "clients").Return(conn)

	clientDatabase := databases.NewClientDatabase(db)
	u := handlers.Client{
		DB: clientDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(u.CreateClientHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["message"] != "Client created successfully" {
		t.Errorf("handler returned unexpected message: got %v", resp["message"])
	}
}

func TestClient_DeleteClientHandlerDBError(t *testing.T) {
	req, err := http.NewRequest("DELETE", "/api/v1/client/5fc51f58c72ff10004dca999", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"client_id": "5fc51f58c72ff10004dca999"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("DeleteOne", mock.Anything, mock.Anything).Return(errors.New("mocked-error"))
	db.(*mocksdb.DatabaseHelper).On("Collection", "clients").Return(conn)

	clientDatabase := databases.NewClientDatabase(db)
	u := handlers.Client{
		DB: clientDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(u.DeleteClientHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusInternalServerError {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusInternalServerError)
	}
}
