package rag

import "strings"

// 预设回复，按顺序匹配：问候 > 感谢 > 帮助 > 告别，命中第一组即返回。
var fallbackRules = []struct {
	keywords []string
	reply    string
}{
	{
		keywords: []string{"bonjour", "salut"},
		reply:    "Bonjour ! Je suis votre assistant spécialisé dans tous les masters de FSDM. Comment puis-je vous aider ?",
	},
	{
		keywords: []string{"merci"},
		reply:    "Je vous en prie ! N'hésitez pas à me poser d'autres questions sur les masters de FSDM.",
	},
	{
		keywords: []string{"aide", "help"},
		reply:    "Je peux vous aider avec toutes vos questions sur les masters de FSDM : ML/AIM, multimédia, informatique, mathématiques, physique, chimie, biologie, etc. Que souhaitez-vous savoir ?",
	},
	{
		keywords: []string{"au revoir", "bye"},
		reply:    "Au revoir ! Bonne continuation dans vos études !",
	},
}

// UnavailableReply 在没有关键词命中时返回。
const UnavailableReply = "Désolé, je ne peux pas accéder à ma base de connaissances pour le moment. Pouvez-vous reformuler votre question ou réessayer plus tard ?"

// Fallback 根据问题中的关键词选择预设回复。
func Fallback(question string) string {
	lower := strings.ToLower(question)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply
			}
		}
	}
	return UnavailableReply
}
