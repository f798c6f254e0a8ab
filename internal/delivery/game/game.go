package game

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mangala_backend/internal/adapters"
	"mangala_backend/internal/bootstrap"
	"mangala_backend/internal/delivery/auth"
	gamedom "mangala_backend/internal/domain/game"
	"mangala_backend/internal/domain/user"
	errs "mangala_backend/internal/errors"
	"mangala_backend/internal/httpresponse"
	"mangala_backend/internal/registry"
	repo "mangala_backend/internal/repository"
	gameuc "mangala_backend/internal/usecase/game"
	"mangala_backend/internal/utils"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type GameHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	gameUC      *gameuc.GameUseCase
	authHandler *auth.AuthHandler
}

func NewGameHandler(cfg bootstrap.Config, log *zap.SugaredLogger, mongoAdapter *adapters.AdapterMongo, redisAdapter *adapters.AdapterRedis, authHandler *auth.AuthHandler) *GameHandler {
	store := repo.NewGameRepository(cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	return &GameHandler{
		cfg:         cfg,
		log:         log,
		gameUC:      gameuc.NewGameUseCase(store, authHandler.Usecase(), registry.New(), log),
		authHandler: authHandler,
	}
}

// NewGameHandlerWithUseCase wires a prebuilt usecase, used by tests.
func NewGameHandlerWithUseCase(cfg bootstrap.Config, log *zap.SugaredLogger, uc *gameuc.GameUseCase, authHandler *auth.AuthHandler) *GameHandler {
	return &GameHandler{
		cfg:         cfg,
		log:         log,
		gameUC:      uc,
		authHandler: authHandler,
	}
}

func (g *GameHandler) HandleNewGame(w http.ResponseWriter, r *http.Request) {
	usr, err := g.authHandler.UserFromRequest(r)
	if err != nil {
		g.log.Warn("NewGame: unauthorized: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusUnauthorized,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	g.log.Infof("new game requested by: %s", usr.ID)

	gameID, err := g.gameUC.CreateGame(r.Context(), usr.ID)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyInGame) {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
			return
		}
		g.log.Error("NewGame: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	g.log.Infof("new game created with id: %s", gameID)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, gamedom.GameCreateResponse{
		GameID:  gameID,
		OwnerID: usr.ID,
	})
}

func (g *GameHandler) HandleJoinGame(w http.ResponseWriter, r *http.Request) {
	usr, err := g.authHandler.UserFromRequest(r)
	if err != nil {
		g.log.Warn("JoinGame: unauthorized: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusUnauthorized,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	gameID := chi.URLParam(r, "game_id")
	if gameID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "game_id is required"})
		return
	}

	if err := g.gameUC.JoinGame(r.Context(), gameID, usr.ID); err != nil {
		switch {
		case errors.Is(err, errs.ErrGameNotFound):
			httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		case errors.Is(err, errs.ErrGameFull), errors.Is(err, errs.ErrAlreadyInGame):
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		default:
			g.log.Error("JoinGame: ", err)
			httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		}
		return
	}

	g.log.Infof("user %s joined game %s", usr.ID, gameID)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, gamedom.GameJoinResponse{
		GameID:  gameID,
		GuestID: usr.ID,
	})
}

func (g *GameHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	summaries, err := g.gameUC.ListGames(r.Context())
	if err != nil {
		g.log.Error("ListGames: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, summaries)
}

func (g *GameHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	var req gamedom.GameFindRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("GetGame: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	found, err := g.gameUC.GetGameByID(r.Context(), req.GameID)
	if err != nil {
		if errors.Is(err, errs.ErrGameNotFound) {
			httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
			return
		}
		g.log.Error("GetGame: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, found)
}

// wsChannel adapts one gorilla connection to the registry's Channel. The
// mutex keeps broadcasts from interleaving frames with the handler's own
// replies.
type wsChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

// HandleGameWS runs one connection through its lifecycle: authenticate,
// attach to the session, then a read loop until disconnect or idle timeout.
func (g *GameHandler) HandleGameWS(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "game_id")
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("upgrade error: ", err)
		return
	}

	usr, err := g.authHandler.Usecase().VerifyToken(r.Context(), token)
	if err != nil {
		g.log.Warnf("ws auth failed for game %s: %v", gameID, err)
		g.closeWithPolicyViolation(conn, "authentication failed")
		return
	}

	g.log.Infof("player %s connecting to game %s", usr.Username, gameID)

	ch := &wsChannel{conn: conn}
	session, err := g.gameUC.Connect(r.Context(), gameID, usr, ch)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrGameNotFound):
			g.closeWithPolicyViolation(conn, "game not found")
		case errors.Is(err, errs.ErrNotInGame):
			g.closeWithPolicyViolation(conn, "not a participant of this game")
		default:
			g.log.Error("ws connect error: ", err)
			g.closeWithPolicyViolation(conn, "connection rejected")
		}
		return
	}

	defer func() {
		g.gameUC.Disconnect(r.Context(), session, usr.ID, ch)
		conn.Close()
	}()

	idle := time.Duration(g.cfg.WsIdleTimeoutSec) * time.Second
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idle))

		var msg gamedom.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Warnf("player %s left game %s: %v", usr.ID, gameID, err)
			}
			return
		}

		g.dispatch(r, session, usr, ch, msg)
	}
}

func (g *GameHandler) dispatch(r *http.Request, session *registry.Session, usr user.User, ch *wsChannel, msg gamedom.ClientMessage) {
	ctx := r.Context()

	switch {
	case msg.HoleIndex != nil:
		if _, err := g.gameUC.Move(ctx, session, usr.ID, *msg.HoleIndex); err != nil {
			// rejections go back to the sender only
			if sendErr := ch.Send(gamedom.NewError(err.Error())); sendErr != nil {
				g.log.Warnf("echoing rejection to %s failed: %v", usr.ID, sendErr)
			}
		}
	case msg.Type == gamedom.MsgStartGame:
		g.gameUC.StartGame(ctx, session)
	case msg.Type == gamedom.MsgEndGame:
		g.gameUC.EndGame(ctx, session)
	default:
		if err := ch.Send(gamedom.NewError("unknown message")); err != nil {
			g.log.Warnf("echoing unknown-message error to %s failed: %v", usr.ID, err)
		}
	}
}

func (g *GameHandler) closeWithPolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		g.log.Warn("sending close frame failed: ", err)
	}
	conn.Close()
}
