package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

const (
	msgFormatHint        = "Usa el formato: [monto] [concepto], por ejemplo 1500,50 Almuerzo. El monto debe ser mayor a 0 y tener hasta 2 decimales."
	msgExpired           = "⚠️ Error: El dato expiró. Por favor, escribe el gasto de nuevo."
	msgCancelled         = "❌ Operación cancelada."
	msgNothingPending    = "No hay ningún gasto pendiente."
	msgUnauthorized      = "⛔ No estás autorizado para usar este bot."
	msgUnknownCommand    = "No conozco ese comando. Usa /ayuda para ver las opciones."
	msgConfirmFirst      = "Primero confirma o cancela el monto del recibo."
	msgDescribeFirst     = "✍️ Primero escribe el concepto del gasto."
	msgOCRDisabled       = "📷 La lectura de recibos no está configurada. " + msgFormatHint
	msgProcessingReceipt = "📷 Procesando el recibo..."
	msgDownloadFailed    = "❌ No pude descargar la foto. Intenta de nuevo."
	msgOCRTimeout        = "⏱️ El recibo tardó demasiado en procesarse. " + msgFormatHint
	msgOCRFailed         = "❌ No pude leer el recibo. " + msgFormatHint
	msgNoAmount          = "🤔 No encontré un monto en el recibo. " + msgFormatHint
	msgReceiptSuperseded = "⚠️ Registraste otro gasto mientras leía el recibo, así que lo descarté."
	msgSummaryStart      = "📊 Calculando el resumen de este mes..."
	msgSummaryEmpty      = "Aún no tienes gastos registrados este mes. 😶"
	msgSummaryFailed     = "❌ Error al generar el resumen."
	msgExportFailed      = "❌ Error al exportar los gastos."
	msgExportUsage       = "Formato no soportado. Usa /exportar csv o /exportar xlsx."
)

// formatAmount renders an amount the way the user typed it: integers stay
// bare and fractions get two decimals.
func formatAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}

func categoryPromptText(amount decimal.Decimal) string {
	return fmt.Sprintf("¿En qué categoría guardamos los $%s?", formatAmount(amount))
}

func committedText(amount decimal.Decimal, description, category string) string {
	return fmt.Sprintf("✅ Registrado: $%s en %s (%s)", formatAmount(amount), description, category)
}

func descriptionPromptText(amount decimal.Decimal) string {
	return fmt.Sprintf("✍️ ¿En qué gastaste los $%s? Escribe el concepto.", formatAmount(amount))
}

func receiptConfirmText(amount decimal.Decimal, merchant string, inferred bool) string {
	if !inferred {
		return fmt.Sprintf("🧾 Total detectado: $%s\n¿Es correcto?", formatAmount(amount))
	}
	return fmt.Sprintf("🧾 Total detectado: $%s\n🏪 %s\n¿Es correcto?", formatAmount(amount), merchant)
}

func saveFailedText(backend string) string {
	if backend == config.LedgerPostgres {
		return "❌ Error al guardar en la base de datos"
	}
	return "❌ Error al guardar en Sheets"
}

func welcomeText(firstName string) string {
	greeting := "¡Hola!"
	if firstName != "" {
		greeting = fmt.Sprintf("¡Hola, %s!", firstName)
	}
	return greeting + " Soy tu asistente de gastos.\n\n" +
		"Escribe un gasto así: 1500 Almuerzo\n" +
		"o mándame la foto de un recibo.\n\n" +
		"Usa /ayuda para ver todos los comandos."
}

const helpText = "📖 Cómo usarme\n\n" +
	"• Escribe [monto] [concepto], por ejemplo 1500,50 Verdulería\n" +
	"• Mándame la foto de un recibo y leo el total\n" +
	"• Elige la categoría con los botones\n\n" +
	"Comandos:\n" +
	"/resumen - gastos del mes por categoría\n" +
	"/exportar [csv|xlsx] - descarga los gastos del mes\n" +
	"/categorias - lista de categorías\n" +
	"/cancelar - descarta el gasto pendiente\n" +
	"/ayuda - este mensaje"

func categoriesText(categories []models.Category) string {
	var sb strings.Builder
	sb.WriteString("🗂️ Categorías disponibles:\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "\n%s", c.Label)
	}
	return sb.String()
}
