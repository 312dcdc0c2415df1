package config

// VocabConfig holds the keyword and pattern vocabularies consumed by the
// pipeline stages. Everything here is overridable from config.yaml so
// vocabulary tuning never requires a code change.
type VocabConfig struct {
	OfferKeywords     []string `yaml:"offer_keywords" mapstructure:"offer_keywords"`
	SpamKeywords      []string `yaml:"spam_keywords" mapstructure:"spam_keywords"`
	TechVocabulary    []string `yaml:"tech_vocabulary" mapstructure:"tech_vocabulary"`
	SpanishMarkers    []string `yaml:"spanish_markers" mapstructure:"spanish_markers"`
	InjectionPatterns []string `yaml:"injection_patterns" mapstructure:"injection_patterns"`
}

// DefaultOfferKeywords signal a genuine job offer.
var DefaultOfferKeywords = []string{
	"role", "position", "opportunity", "hiring", "engineer", "developer",
	"salary", "remote", "onsite", "hybrid", "stack", "looking for", "team",
	"company", "client", "recruiter", "vacancy", "apply",
}

// DefaultSpamKeywords signal unsolicited junk.
var DefaultSpamKeywords = []string{
	"click here", "unsubscribe", "free", "winner", "prize", "bitcoin",
	"crypto", "investment", "guaranteed", "limited time",
}

// DefaultTechVocabulary is the substring-match vocabulary for tech-stack
// extraction.
var DefaultTechVocabulary = []string{
	"Python", "Go", "Golang", "Java", "Kotlin", "Scala", "Rust", "C++", "C#",
	"Ruby", "PHP", "JavaScript", "TypeScript", "React", "Angular", "Vue",
	"Node.js", "Django", "Flask", "FastAPI", "Spring", "Rails", ".NET",
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch", "Kafka",
	"RabbitMQ", "Docker", "Kubernetes", "Terraform", "AWS", "GCP", "Azure",
	"GraphQL", "gRPC", "Git", "Linux",
}

// DefaultSpanishMarkers are regex fragments giving positive evidence of
// Spanish. English stays the default because markers only accumulate evidence
// for non-default languages.
var DefaultSpanishMarkers = []string{
	`\b(hola|estimado|estimada|somos|tenemos|posición|posicion)\b`,
	`\b(salario|remoto|empresa|equipo|interesa|buscamos)\b`,
	`\b(oferta|puesto|trabajar|experiencia en)\b`,
	`\b(te gustaría|nos gustaría|estaríamos|podríamos)\b`,
	`[áéíóúñ¿¡]`,
}

// DefaultInjectionPatterns match known prompt-injection phrasings. Any hit
// marks the message unsafe without consulting a model.
var DefaultInjectionPatterns = []string{
	`(?i)ignore\s+(?:all\s+)?(?:previous|above|prior)\s+instructions`,
	`(?i)you\s+are\s+now\s+(?:a|an|the)`,
	`(?i)system\s*:\s*`,
	`(?i)<\|(?:im_start|system|endoftext)\|>`,
	`(?i)(?:disregard|forget)\s+(?:everything|all)`,
	`(?i)do\s+not\s+follow\s+(?:your|the)\s+(?:rules|instructions)`,
}
