package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"depot/internal/auth"
	"depot/internal/config"
	"depot/internal/content"
	"depot/internal/domain/models"
	"depot/internal/handler"
	"depot/internal/httputil"
	"depot/internal/middleware"
	"depot/internal/repository/postgres"
	"depot/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"storage_disk", cfg.Storage.Disk,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Content store backend
	var store content.Store
	switch cfg.Storage.Disk {
	case models.DiskS3:
		store, err = content.NewS3Store(ctx, content.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			KeyPrefix: cfg.Storage.S3.KeyPrefix,
			PublicURL: cfg.Storage.S3.PublicURL,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 store: %v", err)
		}
	case models.DiskLocal:
		store, err = content.NewFSStore(cfg.Storage.LocalRoot, cfg.Storage.BaseURL)
		if err != nil {
			log.Fatalf("Failed to create filesystem store: %v", err)
		}
	default:
		log.Fatalf("Unknown storage disk %q", cfg.Storage.Disk)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	wsRepo := postgres.NewWorkspaceRepository(repoConfig)
	memberRepo := postgres.NewMembershipRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	placementRepo := postgres.NewPlacementRepository(repoConfig)
	tagRepo := postgres.NewTagRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Create services
	intake := service.NewIntake(logger)
	workspaceService := service.NewWorkspaceService(wsRepo, memberRepo, folderRepo, fileRepo, txManager, logger)
	folderService := service.NewFolderService(folderRepo, workspaceService, txManager, logger)
	fileService := service.NewFileService(fileRepo, versionRepo, workspaceService, txManager, store, cfg.Storage.Disk, intake, logger)
	placementService := service.NewPlacementService(placementRepo, tagRepo, fileRepo, folderRepo, workspaceService, txManager, logger)
	treeService := service.NewTreeService(folderRepo, fileRepo, placementRepo, workspaceService, logger)

	// Create handlers
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	fileHandler := handler.NewFileHandler(fileService, logger)
	placementHandler := handler.NewPlacementHandler(placementService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)

	logger.Info("services initialized")

	// API routes (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Workspaces
	mux.HandleFunc("GET /api/workspaces", workspaceHandler.ListWorkspaces)
	mux.HandleFunc("POST /api/workspaces", workspaceHandler.CreateWorkspace)
	mux.HandleFunc("GET /api/workspaces/{id}", workspaceHandler.GetWorkspace)
	mux.HandleFunc("PATCH /api/workspaces/{id}", workspaceHandler.UpdateWorkspace)
	mux.HandleFunc("DELETE /api/workspaces/{id}", workspaceHandler.DeleteWorkspace)
	mux.HandleFunc("POST /api/workspaces/{id}/restore", workspaceHandler.RestoreWorkspace)
	mux.HandleFunc("DELETE /api/workspaces/{id}/force", workspaceHandler.ForceDeleteWorkspace)
	mux.HandleFunc("POST /api/workspaces/{id}/deactivate", workspaceHandler.DeactivateWorkspace)
	mux.HandleFunc("POST /api/workspaces/{id}/reactivate", workspaceHandler.ReactivateWorkspace)

	// Memberships
	mux.HandleFunc("GET /api/workspaces/{id}/members", workspaceHandler.ListMembers)
	mux.HandleFunc("POST /api/workspaces/{id}/members", workspaceHandler.InviteMember)
	mux.HandleFunc("POST /api/workspaces/{id}/members/accept", workspaceHandler.AcceptInvitation)
	mux.HandleFunc("DELETE /api/workspaces/{id}/members/{userId}", workspaceHandler.RemoveMember)
	mux.HandleFunc("PUT /api/workspaces/{id}/members/{userId}/permissions", workspaceHandler.UpdateMemberPermissions)

	// Tree
	mux.HandleFunc("GET /api/workspaces/{id}/tree", treeHandler.GetTree)

	// Folders
	mux.HandleFunc("GET /api/workspaces/{id}/folders", folderHandler.ListFolders)
	mux.HandleFunc("POST /api/workspaces/{id}/folders", folderHandler.CreateFolder)
	mux.HandleFunc("PUT /api/workspaces/{id}/folders/order", folderHandler.ReorderFolders)
	mux.HandleFunc("GET /api/workspaces/{id}/folders/{folderId}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/workspaces/{id}/folders/{folderId}", folderHandler.MoveFolder)
	mux.HandleFunc("DELETE /api/workspaces/{id}/folders/{folderId}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/workspaces/{id}/folders/{folderId}/restore", folderHandler.RestoreFolder)
	mux.HandleFunc("DELETE /api/workspaces/{id}/folders/{folderId}/force", folderHandler.ForceDeleteFolder)

	// Folder contents and placements
	mux.HandleFunc("GET /api/workspaces/{id}/folders/{folderId}/contents", placementHandler.FolderContents)
	mux.HandleFunc("PUT /api/workspaces/{id}/folders/{folderId}/files/order", placementHandler.ReorderPlacements)
	mux.HandleFunc("PUT /api/workspaces/{id}/folders/{folderId}/files/{fileId}", placementHandler.PlaceFile)
	mux.HandleFunc("DELETE /api/workspaces/{id}/folders/{folderId}/files/{fileId}", placementHandler.UnplaceFile)

	// Files and versions
	mux.HandleFunc("GET /api/workspaces/{id}/files", fileHandler.ListFiles)
	mux.HandleFunc("POST /api/workspaces/{id}/files", fileHandler.UploadFile)
	mux.HandleFunc("POST /api/workspaces/{id}/files/external", fileHandler.UploadExternalFile)
	mux.HandleFunc("GET /api/workspaces/{id}/files/{fileId}", fileHandler.GetFile)
	mux.HandleFunc("PATCH /api/workspaces/{id}/files/{fileId}", fileHandler.UpdateFile)
	mux.HandleFunc("DELETE /api/workspaces/{id}/files/{fileId}", fileHandler.DeleteFile)
	mux.HandleFunc("POST /api/workspaces/{id}/files/{fileId}/restore", fileHandler.RestoreFile)
	mux.HandleFunc("DELETE /api/workspaces/{id}/files/{fileId}/force", fileHandler.ForceDeleteFile)
	mux.HandleFunc("GET /api/workspaces/{id}/files/{fileId}/versions", fileHandler.ListVersions)
	mux.HandleFunc("POST /api/workspaces/{id}/files/{fileId}/versions", fileHandler.ReplaceFile)
	mux.HandleFunc("POST /api/workspaces/{id}/files/{fileId}/versions/external", fileHandler.ReplaceFileExternal)
	mux.HandleFunc("GET /api/workspaces/{id}/files/{fileId}/download", fileHandler.DownloadFile)
	mux.HandleFunc("POST /api/workspaces/{id}/files/{fileId}/lock", fileHandler.LockFile)
	mux.HandleFunc("DELETE /api/workspaces/{id}/files/{fileId}/lock", fileHandler.UnlockFile)
	mux.HandleFunc("GET /api/workspaces/{id}/files/{fileId}/placements", placementHandler.FilePlacements)
	mux.HandleFunc("GET /api/workspaces/{id}/files/{fileId}/tags", placementHandler.FileTags)
	mux.HandleFunc("PUT /api/workspaces/{id}/files/{fileId}/tags/{tagId}", placementHandler.MarkFile)
	mux.HandleFunc("DELETE /api/workspaces/{id}/files/{fileId}/tags/{tagId}", placementHandler.UnmarkFile)

	// Tags
	mux.HandleFunc("GET /api/tags", placementHandler.ListTags)
	mux.HandleFunc("POST /api/tags", placementHandler.CreateTag)
	mux.HandleFunc("DELETE /api/tags/{tagId}", placementHandler.DeleteTag)

	// Build middleware chain. Health stays outside auth so probes need no token.
	var apiHandler http.Handler = mux
	apiHandler = middleware.Authenticate(jwtVerifier)(apiHandler)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/api/", apiHandler)

	var h http.Handler = root
	h = middleware.Recovery(logger)(h)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // long enough for large downloads and external fetches
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
