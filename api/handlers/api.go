package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/api/scheduler"
	"github.com/brightdesk/agency-api/chat"
	"github.com/brightdesk/agency-api/config"
	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Handler   http.Handler
	Config    config.Config
	Rooms     *chat.Registry
	dbHelper  databases.DatabaseHelper
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	store := chat.NewMessageStore(a.dbHelper)
	a.Rooms = chat.NewRegistry(store)

	u := User{DB: databases.NewUserDatabase(a.dbHelper)}
	c := Client{DB: databases.NewClientDatabase(a.dbHelper)}
	p := Project{DB: databases.NewProjectDatabase(a.dbHelper)}
	t := Task{DB: databases.NewTaskDatabase(a.dbHelper)}
	inv := Invoice{DB: databases.NewInvoiceDatabase(a.dbHelper), Config: a.Config}
	n := Note{DB: databases.NewNoteDatabase(a.dbHelper)}
	ch := Chat{Rooms: a.Rooms, Store: store}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", http.HandlerFunc(m.CreateToken)).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/client", api.Middleware(http.HandlerFunc(c.CreateClientHandler))).Methods("POST")
	apiCreate.Handle("/client/{client_id}", api.Middleware(http.HandlerFunc(c.ClientByIDHandler))).Methods("GET")
	apiCreate.Handle("/client/{client_id}", api.Middleware(http.HandlerFunc(c.UpdateClientHandler))).Methods("PUT")
	apiCreate.Handle("/client/{client_id}", api.Middleware(http.HandlerFunc(c.DeleteClientHandler))).Methods("DELETE")
	apiCreate.Handle("/clients", api.Middleware(http.HandlerFunc(c.ClientHandler))).Methods("GET")

	apiCreate.Handle("/project", api.Middleware(http.HandlerFunc(p.CreateProjectHandler))).Methods("POST")
	apiCreate.Handle("/project/{project_id}", api.Middleware(http.HandlerFunc(p.ProjectByIDHandler))).Methods("GET")
	apiCreate.Handle("/project/{project_id}", api.Middleware(http.HandlerFunc(p.UpdateProjectHandler))).Methods("PUT")
	apiCreate.Handle("/project/{project_id}", api.Middleware(http.HandlerFunc(p.DeleteProjectHandler))).Methods("DELETE")
	apiCreate.Handle("/projects", api.Middleware(http.HandlerFunc(p.ProjectHandler))).Methods("GET")
	apiCreate.Handle("/projects/client/{client_id}", api.Middleware(http.HandlerFunc(p.ProjectsByClientIDHandler))).Methods("GET")

	apiCreate.Handle("/project/{project_id}/chat/websocket", api.Middleware(http.HandlerFunc(ch.ChatWebSocketHandler))).Methods("GET")
	apiCreate.Handle("/project/{project_id}/chat/unread/{user_id}", api.Middleware(http.HandlerFunc(ch.UnreadCountHandler))).Methods("GET")
	apiCreate.Handle("/project/{project_id}/chat/read", api.Middleware(http.HandlerFunc(ch.MarkReadHandler))).Methods("PUT")
	apiCreate.Handle("/project/{project_id}/chat/messages", api.Middleware(http.HandlerFunc(ch.ChatHistoryHandler))).Methods("GET")

	apiCreate.Handle("/task", api.Middleware(http.HandlerFunc(t.CreateTaskHandler))).Methods("POST")
	apiCreate.Handle("/task/{task_id}", api.Middleware(http.HandlerFunc(t.TaskByIDHandler))).Methods("GET")
	apiCreate.Handle("/task/{task_id}", api.Middleware(http.HandlerFunc(t.UpdateTaskHandler))).Methods("PUT")
	apiCreate.Handle("/task/{task_id}", api.Middleware(http.HandlerFunc(t.DeleteTaskHandler))).Methods("DELETE")
	apiCreate.Handle("/tasks/project/{project_id}", api.Middleware(http.HandlerFunc(t.TasksByProjectIDHandler))).Methods("GET")

	apiCreate.Handle("/invoice", api.Middleware(http.HandlerFunc(inv.CreateInvoiceHandler))).Methods("POST")
	apiCreate.Handle("/invoice/{invoice_id}", api.Middleware(http.HandlerFunc(inv.InvoiceByIDHandler))).Methods("GET")
	apiCreate.Handle("/invoice/{invoice_id}", api.Middleware(http.HandlerFunc(inv.UpdateInvoiceHandler))).Methods("PUT")
	apiCreate.Handle("/invoice/{invoice_id}/checkout-session", api.Middleware(http.HandlerFunc(inv.CreateCheckoutSessionHandler))).Methods("POST")
	apiCreate.Handle("/invoices/project/{project_id}", api.Middleware(http.HandlerFunc(inv.InvoicesByProjectIDHandler))).Methods("GET")

	apiCreate.Handle("/note", api.Middleware(http.HandlerFunc(n.CreateNoteHandler))).Methods("POST")
	apiCreate.Handle("/note/{note_id}", api.Middleware(http.HandlerFunc(n.DeleteNoteHandler))).Methods("DELETE")
	apiCreate.Handle("/notes/project/{project_id}", api.Middleware(http.HandlerFunc(n.NotesByProjectIDHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("agency-api has connected to the database")

	// initialize stripe, payments stay disabled without a key
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		zap.S().Warn("stripe secret key is not set, checkout sessions disabled")
	}
	stripe.Key = stripeKey

	// initialize api router
	a.initializeRoutes()

	a.scheduler = scheduler.NewScheduler(databases.NewInvoiceDatabase(a.dbHelper), a.Rooms)
	a.scheduler.Start()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
	a.Handler = cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(a.Router)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
