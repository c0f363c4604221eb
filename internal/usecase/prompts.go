package usecase

import (
	"fmt"

	"ContentPipeline/internal/domain"
)

const maxSourceRunes = 6000

var sourcePrompts = map[string]string{
	domain.LanguageKorean: "다음 커뮤니티 게시글을 바탕으로 재미있고 읽기 쉬운 짧은 글을 작성해주세요. " +
		"사실 관계는 그대로 유지하되 문장과 표현은 원문과 충분히 다르게 바꿔주세요. " +
		"다음 형식으로 답해주세요.\n제목: <제목>\n요약: <한 문장 요약>\n본문:\n<마크다운 본문>\n\n원문:\n%s",
	domain.LanguageEnglish: "Based on the following community post, write a fun, easy to read short article. " +
		"Keep every fact but reword the text substantially so it does not copy the original. " +
		"Answer in this format.\nTitle: <title>\nExcerpt: <one sentence summary>\nBody:\n<markdown body>\n\nOriginal:\n%s",
	domain.LanguageJapanese: "次のコミュニティ投稿をもとに、面白くて読みやすい短い記事を書いてください。" +
		"事実はそのまま保ち、文章と表現は原文と十分に異なるように書き直してください。" +
		"次の形式で回答してください。\nタイトル: <タイトル>\n要約: <一文の要約>\n本文:\n<マークダウン本文>\n\n原文:\n%s",
}

var keywordPrompts = map[string]string{
	domain.LanguageKorean: "다음 키워드에 대한 유익하고 흥미로운 글을 작성해주세요: '%s'\n카테고리: %s\n\n" +
		"최소 500자 이상의 정보성 글로, 제목은 SEO에 최적화해주세요. 본문에는 관련 정보와 유용한 팁을 포함해주세요. " +
		"다음 형식으로 답해주세요.\n제목: <제목>\n요약: <한 문장 요약>\n본문:\n<마크다운 본문>",
	domain.LanguageEnglish: "Write an informative and interesting article about the keyword: '%s'\nCategory: %s\n\n" +
		"The article should be at least 500 words with an SEO-optimized title, and include relevant information and useful tips. " +
		"Answer in this format.\nTitle: <title>\nExcerpt: <one sentence summary>\nBody:\n<markdown body>",
	domain.LanguageJapanese: "キーワード '%s' に関する有益で面白い記事を書いてください。\nカテゴリ: %s\n\n" +
		"少なくとも500文字の情報記事にし、SEOに最適化したタイトルをつけ、関連情報と役立つヒントを含めてください。" +
		"次の形式で回答してください。\nタイトル: <タイトル>\n要約: <一文の要約>\n本文:\n<マークダウン本文>",
}

// sourcePrompt asks for a reworded article based on text. Unknown languages use English.
func sourcePrompt(language, text string) string {
	runes := []rune(text)
	if len(runes) > maxSourceRunes {
		text = string(runes[:maxSourceRunes])
	}
	return fmt.Sprintf(promptFor(sourcePrompts, language), text)
}

func keywordPrompt(language, keyword, category string) string {
	return fmt.Sprintf(promptFor(keywordPrompts, language), keyword, category)
}

func promptFor(templates map[string]string, language string) string {
	if tpl, ok := templates[language]; ok {
		return tpl
	}
	return templates[domain.LanguageEnglish]
}
