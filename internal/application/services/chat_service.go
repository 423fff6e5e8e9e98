package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	"github.com/sooahkim/childcenter-chat/pkg/errors"
)

var (
	// "50명 이상인 곳" style phrasing overrides the 정원N shorthand.
	capacityOverrideRe = regexp.MustCompile(`(\d+)\s*명?\s*(이상|넘는|넘게|인곳)`)

	// lazy so the name stops at the first info keyword; "드림센터 정보
	// 알려줘" yields 드림, not the whole phrase
	centerInfoRe = regexp.MustCompile(`([가-힣0-9A-Za-z·\-\s]{2,30}?)\s*(?:센터|정보|어디|알려|번호)`)

	comparisonSplitRe = regexp.MustCompile(`vs|랑|와|과|비교`)
)

var (
	comparisonKeywords = []string{"vs", "비교", "대비", "랑"}
	greetingKeywords   = []string{"안녕", "반가워", "하이"}
	centerKeywords     = []string{"센터", "추천", "가까", "번호", "주소", "정원", "곳"}
)

const fallbackReply = "지역아동센터 추천이나 정보를 도와드릴 수 있어요! 예: \"가까운 센터 3개 추천해줘\""

// NameSearcher accelerates center lookup by name. Optional; the SQL
// repository is the fallback.
type NameSearcher interface {
	FindIDsByName(ctx context.Context, name string, limit int) ([]string, error)
}

// ChatService is the conversational router. Each turn walks a fixed priority
// ladder: memory commands, comparison, single-center info, field-focused
// intents, small talk, then geo recommendation.
type ChatService struct {
	repo       repositories.CenterRepository
	classifier *IntentClassifier
	geo        *GeoSearchService
	memory     *SessionMemory
	composer   *ResponseComposer
	search     NameSearcher
}

// NewChatService creates a new chat service. search may be nil.
func NewChatService(
	repo repositories.CenterRepository,
	classifier *IntentClassifier,
	geo *GeoSearchService,
	memory *SessionMemory,
	composer *ResponseComposer,
	search NameSearcher,
) *ChatService {
	return &ChatService{
		repo:       repo,
		classifier: classifier,
		geo:        geo,
		memory:     memory,
		composer:   composer,
		search:     search,
	}
}

// Handle answers one chat turn. The only error it returns for bad input is
// VALIDATION on an empty message; infrastructure failures on the geo path
// surface as UNAVAILABLE.
func (s *ChatService) Handle(ctx context.Context, sessionID string, req entities.ChatRequest) (*entities.ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, errors.NewValidationError("message is required")
	}

	resp, err := s.route(ctx, sessionID, msg, req)
	if err != nil {
		return nil, err
	}

	s.memory.AppendTurn(ctx, sessionID, "user", msg)
	s.memory.AppendTurn(ctx, sessionID, "assistant", resp.Text)
	return resp, nil
}

func (s *ChatService) route(ctx context.Context, sessionID, msg string, req entities.ChatRequest) (*entities.ChatResponse, error) {
	stripped := strings.ReplaceAll(msg, " ", "")

	if name := DetectNameSet(msg); name != "" {
		s.memory.RememberName(ctx, sessionID, name)
		return textResponse(fmt.Sprintf("반가워요, %s님! 이름을 기억해둘게요.", name)), nil
	}

	if DetectNameAsk(msg) {
		if name, ok := s.memory.RecallName(ctx, sessionID); ok {
			return textResponse(fmt.Sprintf("사용자님 성함은 %s입니다. 잊지 않고 있어요!", name)), nil
		}
		return textResponse("아직 성함을 모르겠어요. \"내 이름은 OO야\" 라고 알려주세요!"), nil
	}

	if containsAny(stripped, comparisonKeywords) {
		if resp := s.compareCenters(ctx, stripped); resp != nil {
			return resp, nil
		}
	}

	if resp := s.centerInfo(ctx, msg, req); resp != nil {
		return resp, nil
	}

	result := s.classifier.Classify(ctx, msg)
	isCenter := containsAny(stripped, centerKeywords)

	if resp := s.fieldFocused(ctx, result, msg, stripped); resp != nil {
		return resp, nil
	}

	offDomain := result.Intent == entities.IntentNoise || result.Intent == entities.IntentOutOfDomain
	if (offDomain && !isCenter) || containsAny(stripped, greetingKeywords) {
		return textResponse(s.composer.SmallTalk(ctx, msg)), nil
	}

	wantsReco := result.Intent == entities.IntentRecoNear || result.Intent == entities.IntentRecoFar || isCenter
	if wantsReco && req.Lat != nil && req.Lon != nil {
		return s.recommend(ctx, msg, result, req)
	}
	if wantsReco {
		return textResponse("위치 정보가 없어 주변 센터를 찾을 수 없어요. 위치 접근을 허용해주세요."), nil
	}

	return textResponse(fallbackReply), nil
}

func (s *ChatService) recommend(ctx context.Context, msg string, result entities.IntentResult, req entities.ChatRequest) (*entities.ChatResponse, error) {
	opts := ParseOptions(msg)
	if mc := resolveMinCapacity(msg); mc != nil {
		opts.MinCapacity = mc
	}
	if result.Intent == entities.IntentRecoFar {
		opts.Order = entities.OrderFarthest
	}

	centers, err := s.geo.SearchNearby(ctx, *req.Lat, *req.Lon, opts)
	if err != nil {
		return nil, err
	}

	text := s.composer.ComposeRecommendation(ctx, msg, centers)
	return &entities.ChatResponse{Text: text, Centers: centers}, nil
}

// fieldFocused answers PHONE/ADDRESS/FEE questions that name a center, and
// CAP_SUM questions that name a district. Returns nil when the branch does
// not apply.
func (s *ChatService) fieldFocused(ctx context.Context, result entities.IntentResult, msg, stripped string) *entities.ChatResponse {
	switch result.Intent {
	case entities.IntentPhone, entities.IntentAddress, entities.IntentFee:
		name := extractCenterName(msg)
		if name == "" {
			name = result.Slots["center"]
		}
		if name == "" {
			return nil
		}
		center := s.lookupCenter(ctx, name)
		if center == nil {
			return textResponse(fmt.Sprintf("\"%s\" 센터를 찾지 못했어요. 정확한 센터명으로 다시 물어봐주세요.", name))
		}
		return textResponse(fieldReply(result.Intent, center))

	case entities.IntentCapSum:
		district := result.Slots["district"]
		if district == "" {
			if m := districtRe.FindStringSubmatch(msg); m != nil {
				district = m[1]
			}
		}
		if district == "" {
			return nil
		}
		summary, err := s.repo.CapacitySummary(ctx, district)
		if err != nil || summary == nil || summary.CenterCount == 0 {
			return textResponse(fmt.Sprintf("%s의 센터 정원 정보를 찾지 못했어요.", district))
		}
		return textResponse(fmt.Sprintf("%s에는 지역아동센터가 %d개 있고, 총 정원은 %d명이에요.",
			summary.District, summary.CenterCount, summary.TotalCapacity))
	}
	return nil
}

func fieldReply(intent entities.Intent, c *entities.Center) string {
	switch intent {
	case entities.IntentPhone:
		if c.Phone == "" {
			return fmt.Sprintf("%s의 전화번호 정보가 없어요.", c.CenterName)
		}
		return fmt.Sprintf("%s의 전화번호는 %s입니다.", c.CenterName, c.Phone)
	case entities.IntentAddress:
		if c.Address == "" {
			return fmt.Sprintf("%s의 주소 정보가 없어요.", c.CenterName)
		}
		return fmt.Sprintf("%s의 주소는 %s입니다.", c.CenterName, c.Address)
	case entities.IntentFee:
		if c.Fee == "" {
			return fmt.Sprintf("%s의 이용료 정보가 없어요. 센터에 직접 문의해주세요.", c.CenterName)
		}
		return fmt.Sprintf("%s의 이용료는 %s입니다.", c.CenterName, c.Fee)
	}
	return FormatCenterDetail(c, nil)
}

// centerInfo answers "OO센터 어디야 / 알려줘" style questions. Returns nil
// when no center name is recognized or matched.
func (s *ChatService) centerInfo(ctx context.Context, msg string, req entities.ChatRequest) *entities.ChatResponse {
	name := extractCenterName(msg)
	if name == "" {
		return nil
	}

	center := s.lookupCenter(ctx, name)
	if center == nil {
		return nil
	}

	var distance *float64
	if req.Lat != nil && req.Lon != nil && center.HasLocation() {
		d := HaversineKm(*req.Lat, *req.Lon, *center.Lat, *center.Lon)
		distance = &d
	}
	return textResponse(FormatCenterDetail(center, distance))
}

// compareCenters answers "A랑 B 비교해줘". Returns nil unless both sides
// resolve to a known center.
func (s *ChatService) compareCenters(ctx context.Context, stripped string) *entities.ChatResponse {
	parts := comparisonSplitRe.Split(stripped, -1)
	names := make([]string, 0, 2)
	for _, p := range parts {
		p = strings.Trim(p, "해줘알려줘?! ")
		if len([]rune(p)) >= 2 {
			names = append(names, p)
		}
		if len(names) == 2 {
			break
		}
	}
	if len(names) < 2 {
		return nil
	}

	a := s.lookupCenter(ctx, names[0])
	b := s.lookupCenter(ctx, names[1])
	if a == nil || b == nil {
		return nil
	}

	return textResponse(fmt.Sprintf("비교 결과:\n- %s : %s, 정원 %s\n- %s : %s, 정원 %s",
		a.CenterName, a.District, capacityText(a),
		b.CenterName, b.District, capacityText(b)))
}

func capacityText(c *entities.Center) string {
	if c.Capacity == nil {
		return "정보 없음"
	}
	return strconv.Itoa(*c.Capacity) + "명"
}

// lookupCenter resolves a name to one center, preferring the text-search
// index and falling back to the SQL repository.
func (s *ChatService) lookupCenter(ctx context.Context, name string) *entities.Center {
	if s.search != nil {
		ids, err := s.search.FindIDsByName(ctx, name, 1)
		if err != nil {
			log.Debug().Err(err).Str("name", name).Msg("name index lookup failed, falling back to SQL")
		} else if len(ids) > 0 {
			if center, err := s.repo.GetByID(ctx, ids[0]); err == nil {
				return center
			}
		}
	}

	centers, err := s.repo.FindByName(ctx, name, 1)
	if err != nil || len(centers) == 0 {
		return nil
	}
	return centers[0]
}

// nameStopwords are qualifiers that precede "센터" without naming one.
var nameStopwords = map[string]struct{}{
	"가까운": {}, "근처": {}, "주변": {}, "주변에": {}, "지역아동": {},
	"토요일": {}, "좋은": {}, "어느": {}, "무슨": {}, "그냥": {},
}

// extractCenterName pulls a candidate center name out of the message.
func extractCenterName(msg string) string {
	m := centerInfoRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	name = strings.TrimSuffix(name, "센터")
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return ""
	}
	if _, ok := nameStopwords[name]; ok {
		return ""
	}
	return name
}

// resolveMinCapacity applies the call-site capacity phrasing, which wins
// over the 정원N shorthand when both appear.
func resolveMinCapacity(msg string) *int {
	stripped := strings.ReplaceAll(msg, " ", "")
	m := capacityOverrideRe.FindStringSubmatch(stripped)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func textResponse(text string) *entities.ChatResponse {
	return &entities.ChatResponse{Text: text, Centers: []entities.ScoredCenter{}}
}
