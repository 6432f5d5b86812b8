package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ferremas-app/ferremas-backend/internal/catalog"
	"github.com/ferremas-app/ferremas-backend/internal/notifications"
	"github.com/ferremas-app/ferremas-backend/internal/payments/webpay"
	"github.com/ferremas-app/ferremas-backend/internal/users"
)

// MarcadorReembolso actualiza el estado de pago de un pedido cuya
// devolución ya fue aceptada por Webpay.
type MarcadorReembolso interface {
	MarcarReembolsado(ctx context.Context, ordenCompra string) error
}

// BuscadorTransaccion resuelve el token Webpay de una orden ya pagada. El
// intento de reembolso solo viaja con la orden de compra.
type BuscadorTransaccion interface {
	TokenPorOrden(ctx context.Context, ordenCompra string) (string, error)
}

// Dispatchers conecta cada tipo de intento con los servicios que lo
// resuelven. Los handlers son idempotentes frente a reintentos salvo el
// envío de push, que puede duplicarse (entrega at-least-once).
type Dispatchers struct {
	Usuarios       *users.Repo
	Sender         *notifications.Sender
	Notificaciones *notifications.Repo
	Catalogo       *catalog.Repo
	Webpay         *webpay.Client
	Pedidos        MarcadorReembolso
	Transacciones  BuscadorTransaccion
	Logger         *zap.Logger
}

func (d *Dispatchers) RegistrarTodos(p *Processor) {
	p.Registrar(TipoNotificarVendedor, d.notificarVendedores)
	p.Registrar(TipoNotificarCliente, d.notificarUsuario)
	p.Registrar(TipoNotificarBodeguero, d.notificarUsuario)
	p.Registrar(TipoNotificarContador, d.notificarContadores)
	p.Registrar(TipoReponerStock, d.reponerStock)
	p.Registrar(TipoReembolso, d.reembolsar)
}

// notificarVendedores hace push a todos los vendedores con token
// registrado. Un vendedor sin token no cuenta como fallo.
func (d *Dispatchers) notificarVendedores(ctx context.Context, payload map[string]interface{}) error {
	titulo := payloadString(payload, "titulo")
	cuerpo := payloadString(payload, "cuerpo")
	orden := payloadString(payload, "ordenCompra")

	vendedores, err := d.Usuarios.ListarPorRol(ctx, users.RolVendedor)
	if err != nil {
		return fmt.Errorf("listando vendedores: %w", err)
	}

	var fallos int
	for _, v := range vendedores {
		if v.PushToken == "" {
			continue
		}
		data := map[string]interface{}{"ordenCompra": orden}
		if _, err := d.Sender.Enviar(ctx, v.PushToken, titulo, cuerpo, notifications.CanalVendedor, data); err != nil {
			fallos++
			d.Logger.Warn("push a vendedor fallido",
				zap.String("uid", v.UID),
				zap.Error(err))
			continue
		}
		d.registrarNotificacion(ctx, notifications.ColVendedor, v.UID, titulo, cuerpo, orden)
	}
	if fallos > 0 && fallos == len(vendedores) {
		return fmt.Errorf("push fallido para los %d vendedores", fallos)
	}
	return nil
}

// notificarContadores hace push a los contadores con token registrado. El
// documento in-app ya lo escribió el servicio de pedidos junto al pedido.
func (d *Dispatchers) notificarContadores(ctx context.Context, payload map[string]interface{}) error {
	titulo := payloadString(payload, "titulo")
	cuerpo := payloadString(payload, "cuerpo")
	orden := payloadString(payload, "ordenCompra")

	contadores, err := d.Usuarios.ListarPorRol(ctx, users.RolContador)
	if err != nil {
		return fmt.Errorf("listando contadores: %w", err)
	}

	var fallos int
	for _, u := range contadores {
		if u.PushToken == "" {
			continue
		}
		data := map[string]interface{}{"ordenCompra": orden}
		if _, err := d.Sender.Enviar(ctx, u.PushToken, titulo, cuerpo, notifications.CanalContador, data); err != nil {
			fallos++
			d.Logger.Warn("push a contador fallido",
				zap.String("uid", u.UID),
				zap.Error(err))
		}
	}
	if fallos > 0 && fallos == len(contadores) {
		return fmt.Errorf("push fallido para los %d contadores", fallos)
	}
	return nil
}

// notificarUsuario hace push a un usuario puntual. El payload trae el
// uid, el canal y la colección donde persistir la notificación.
func (d *Dispatchers) notificarUsuario(ctx context.Context, payload map[string]interface{}) error {
	uid := payloadString(payload, "usuarioId")
	if uid == "" {
		return fmt.Errorf("payload sin usuarioId")
	}
	titulo := payloadString(payload, "titulo")
	cuerpo := payloadString(payload, "cuerpo")
	orden := payloadString(payload, "ordenCompra")
	canal := payloadString(payload, "canal")
	if canal == "" {
		canal = notifications.CanalCliente
	}
	coleccion := payloadString(payload, "coleccion")
	if coleccion == "" {
		coleccion = notifications.ColCliente
	}

	u, err := d.Usuarios.Get(ctx, uid)
	if err != nil {
		return fmt.Errorf("buscando destinatario %s: %w", uid, err)
	}
	if u.PushToken == "" {
		d.Logger.Info("destinatario sin token push, solo se persiste",
			zap.String("uid", uid))
		d.registrarNotificacion(ctx, coleccion, uid, titulo, cuerpo, orden)
		return nil
	}

	data := map[string]interface{}{"ordenCompra": orden}
	if _, err := d.Sender.Enviar(ctx, u.PushToken, titulo, cuerpo, canal, data); err != nil {
		return fmt.Errorf("push a %s: %w", uid, err)
	}
	d.registrarNotificacion(ctx, coleccion, uid, titulo, cuerpo, orden)
	return nil
}

func (d *Dispatchers) reponerStock(ctx context.Context, payload map[string]interface{}) error {
	items, err := payloadItems(payload)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return d.Catalogo.ReponerStock(ctx, items)
}

func (d *Dispatchers) reembolsar(ctx context.Context, payload map[string]interface{}) error {
	orden := payloadString(payload, "ordenCompra")
	monto := payloadInt64(payload, "monto")
	if orden == "" {
		return fmt.Errorf("payload de reembolso sin ordenCompra")
	}

	token, err := d.Transacciones.TokenPorOrden(ctx, orden)
	if err != nil {
		return fmt.Errorf("buscando token de %s: %w", orden, err)
	}

	if _, err := d.Webpay.Refund(ctx, token, monto); err != nil {
		return fmt.Errorf("reembolso webpay de %s: %w", orden, err)
	}
	if err := d.Pedidos.MarcarReembolsado(ctx, orden); err != nil {
		return fmt.Errorf("marcando reembolso de %s: %w", orden, err)
	}
	d.Logger.Info("reembolso completado",
		zap.String("ordenCompra", orden),
		zap.Int64("monto", monto))
	return nil
}

func (d *Dispatchers) registrarNotificacion(ctx context.Context, coleccion, uid, titulo, cuerpo, orden string) {
	n := &notifications.Notificacion{
		Titulo:      titulo,
		Mensaje:     cuerpo,
		UsuarioID:   uid,
		OrdenCompra: orden,
	}
	if _, err := d.Notificaciones.Crear(ctx, coleccion, n); err != nil {
		d.Logger.Warn("no se pudo persistir notificación",
			zap.String("uid", uid),
			zap.Error(err))
	}
}

func payloadString(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadInt64(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// payloadItems parsea la lista de productos tal como Firestore la
// devuelve (mapas con valores int64).
func payloadItems(payload map[string]interface{}) ([]catalog.ItemDescuento, error) {
	raw, ok := payload["items"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("payload sin items")
	}
	items := make([]catalog.ItemDescuento, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("item con formato inesperado")
		}
		id := payloadString(m, "productoId")
		if id == "" {
			return nil, fmt.Errorf("item sin productoId")
		}
		items = append(items, catalog.ItemDescuento{
			ProductoID: id,
			Cantidad:   int(payloadInt64(m, "cantidad")),
		})
	}
	return items, nil
}
