package usecase

import (
	"fmt"
	"strings"

	"github.com/foodflow/backend/internal/domain"
)

const receiptPrompt = `Analyze this receipt. Return a JSON object with a list of items (name, price, quantity) and the total amount. Do not include markdown formatting, just raw JSON. Format: {"items": [{"name": "str", "price": float, "quantity": float}], "total": float}`

const labelPrompt = `You are scanning a Russian food label photo. Return ONLY JSON (no markdown) with the following keys: {"name": "Название товара (RU)", "brand": "Бренд (если указан)", "weight_grams": 0, "calories": 0, "protein": 0, "fat": 0, "carbs": 0, "fiber": 0}. All nutrition values must be per 100g/ml. weight_grams is the net weight of the package in grams. If data is missing, set the value to null.`

const priceTagPrompt = `You are scanning a Russian store price tag photo. Return ONLY JSON (no markdown) with the following keys: {"product_name": "Название товара (RU)", "price": 0.0, "volume": "Вес/объем с единицами", "store": "Название магазина"}. If data is missing, set the value to null.`

// normalizationPrompt builds the batch prompt for raw receipt names
func normalizationPrompt(items []domain.RawLineItem) string {
	var list strings.Builder
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&list, "- %s\n", name)
	}

	return "You are a smart receipt assistant. I have a list of raw product names from a Russian grocery receipt. " +
		"Many names are abbreviated or contain OCR errors (e.g., 'СЕЛЬКИ насло' -> 'Масло подсолнечное', 'Шинка ВЕЛОСИПЕД' -> 'Ветчина'). " +
		"Your task:\n" +
		"1. Identify the real product name using web search if needed.\n" +
		"2. PRESERVE brand names if recognizable (e.g., 'МИЛКА' -> 'Милка', 'Lays' -> 'Lays').\n" +
		"3. PRESERVE weight/volume if present (e.g., '450г', '1л', '200мл').\n" +
		"4. Categorize it (e.g., Молочные продукты, Мясо, Овощи, Снеки, Бакалея).\n" +
		"5. Estimate per-100g nutrition: calories, protein, fat, carbs, fiber.\n" +
		"6. Return a JSON object with a list of normalized items. Keep the original order.\n" +
		"IMPORTANT: All names and categories MUST be in RUSSIAN language.\n\n" +
		"Input List:\n" +
		list.String() + "\n" +
		"CRITICAL OUTPUT REQUIREMENTS:\n" +
		"- Return ONLY the JSON object. Nothing before it, nothing after it.\n" +
		"- Do NOT include markdown formatting (no ```json or ```).\n" +
		"- Your response must start with { and end with }.\n" +
		"Output Format (JSON ONLY, NO TEXT BEFORE OR AFTER):\n" +
		`{"normalized": [{"original": "...", "name": "Название с брендом и весом (RU)", "category": "Категория (RU)", "calories": 123, "protein": 1.0, "fat": 1.0, "carbs": 1.0, "fiber": 1.0}]}`
}
