package controller

import (
	"bytes"
	"errors"
	"html/template"
	"strings"

	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/dto"
	"wa-group-gateway/internal/pairing"
	"wa-group-gateway/internal/pkg/logger"
	"wa-group-gateway/internal/pkg/serverutils"
	"wa-group-gateway/internal/service"
	"wa-group-gateway/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	qrNotAvailableText = "QR aún no disponible. Revisa Logs o espera unos segundos."
	qrRenderErrorText  = "Error generando QR"
	notReadyHint       = "WhatsApp aún no está listo. Revisa Logs hasta ver ✅ WhatsApp conectado."
)

var qrPage = template.Must(template.New("qr").Parse(`
<html>
  <head><title>QR WhatsApp</title></head>
  <body style="margin:0;display:flex;align-items:center;justify-content:center;height:100vh;">
    <div style="text-align:center;font-family:Arial,sans-serif;">
      <h2>Escanea este QR con WhatsApp</h2>
      <p>WhatsApp → Dispositivos vinculados → Vincular dispositivo</p>
      <img src="{{.}}" style="width:340px;height:340px;" />
    </div>
  </body>
</html>
`))

// StateReader is the read side of the readiness tracker.
type StateReader interface {
	IsReady() bool
	State() session.State
}

type IGatewayController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	QR(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
}

type gatewayController struct {
	dispatcher service.IDispatchService
	presenter  pairing.IPresenter
	state      StateReader
	auth       config.AuthConfig
	qrMode     pairing.Mode
	logger     logger.ILogger
}

func NewGatewayController(
	dispatcher service.IDispatchService,
	presenter pairing.IPresenter,
	state StateReader,
	auth config.AuthConfig,
	qrMode pairing.Mode,
	log logger.ILogger,
) IGatewayController {
	return &gatewayController{
		dispatcher: dispatcher,
		presenter:  presenter,
		state:      state,
		auth:       auth,
		qrMode:     qrMode,
		logger:     log,
	}
}

func (c *gatewayController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/qr", c.QR)
	r.Post("/send", c.Send)
}

func (c *gatewayController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{
		OK:            true,
		WhatsappReady: c.state.IsReady(),
		State:         c.state.State().String(),
	})
}

func (c *gatewayController) QR(ctx *fiber.Ctx) error {
	artifact, err := c.presenter.RenderLatest(c.qrMode)
	if errors.Is(err, pairing.ErrNotAvailable) {
		return ctx.Status(fiber.StatusOK).SendString(qrNotAvailableText)
	}
	if err != nil {
		c.logger.Error("QR", "Failed to render pairing code", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).SendString(qrRenderErrorText)
	}

	if artifact.Mode == pairing.ModeTerminal {
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return ctx.SendString(artifact.Glyph)
	}

	var page bytes.Buffer
	if err := qrPage.Execute(&page, template.URL(artifact.DataURI)); err != nil {
		c.logger.Error("QR", "Failed to render pairing page", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).SendString(qrRenderErrorText)
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Send(page.Bytes())
}

func (c *gatewayController) Send(ctx *fiber.Ctx) error {
	body := decodeSendBody(ctx.Body())

	if !serverutils.SecretMatches(body.secret(), c.auth.BotSecret, c.auth.BotSecretHash) {
		c.logger.Warn("SEND", "Rejected request with a bad secret", map[string]interface{}{"ip": ctx.IP()})
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.Unauthorized())
	}

	req, err := body.request()
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(string(service.KindValidation), "invalid body: "+err.Error()))
	}

	res, err := c.dispatcher.Dispatch(ctx.UserContext(), req.GroupName, req.Message)
	if err != nil {
		return c.sendError(ctx, err)
	}

	if res.Skipped {
		return ctx.JSON(dto.SendResponse{OK: true, Skipped: true, Reason: res.Reason})
	}
	return ctx.JSON(dto.SendResponse{OK: true, EnviadoA: res.SentTo, Retried: res.Retried})
}

func (c *gatewayController) sendError(ctx *fiber.Ctx, err error) error {
	var de *service.DispatchError
	if !errors.As(err, &de) {
		return ctx.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:  "error enviando",
			Kind:   string(service.KindSendFailure),
			Detail: err.Error(),
		})
	}

	body := dto.ErrorResponse{Error: de.Message, Kind: string(de.Kind)}
	switch de.Kind {
	case service.KindValidation:
		return ctx.Status(fiber.StatusBadRequest).JSON(body)
	case service.KindNotReady:
		body.Hint = notReadyHint
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(body)
	case service.KindNotFound:
		groups := de.AvailableGroups
		if groups == nil {
			groups = []string{}
		}
		return ctx.Status(fiber.StatusNotFound).JSON(dto.GroupNotFoundResponse{ErrorResponse: body, GruposDisponibles: groups})
	case service.KindInternal:
		return ctx.Status(fiber.StatusInternalServerError).JSON(body)
	default:
		body.Detail = strings.TrimSpace(de.Detail)
		return ctx.Status(fiber.StatusInternalServerError).JSON(body)
	}
}
