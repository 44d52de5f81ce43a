package imagine

// EstimateCost returns the approximate USD price of one image at the
// given model, size and quality, or 0 when the model is free or the
// price is unknown. Figures follow OpenAI's published per-image rates.
func EstimateCost(model, size, quality string) float64 {
	switch model {
	case "dall-e-3":
		base := 0.04
		if quality == "hd" {
			base = 0.08
		}
		if size == "1792x1024" || size == "1024x1792" {
			base *= 2
		}
		return base
	case "dall-e-2":
		if size == "1024x1024" {
			return 0.02
		}
		return 0.018
	}
	return 0
}
