package credentials

import (
	"encoding/json"
	"fmt"
)

// Canonicalize produce la forma canónica de un valor JSON: claves ordenadas
// lexicográficamente en todos los niveles, sin espacios. Emisión y
// verificación usan exactamente esta misma función; cualquier asimetría acá
// invalidaría todas las credenciales emitidas.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("credentials: canonicalize: %w", err)
	}
	// Re-decodificar a estructuras genéricas: encoding/json serializa los
	// maps con claves ordenadas, lo que nos da el orden canónico gratis.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("credentials: canonicalize: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("credentials: canonicalize: %w", err)
	}
	return out, nil
}
