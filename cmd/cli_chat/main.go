package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cinematch-llm/internal/config"
	"cinematch-llm/internal/domain"
	"cinematch-llm/internal/llm"
	"cinematch-llm/internal/oracle"
	"cinematch-llm/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	retry := oracle.RetryPolicy{
		MaxAttempts: cfg.LLMMaxAttempts,
		Backoff:     cfg.LLMRetryBackoff(),
	}
	client := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout(), logger)
	gateway := oracle.NewGateway(client, retry, logger)

	personaSvc := service.NewPersonaService(gateway, logger)
	scoringSvc := service.NewScoringService(gateway, logger)
	selector := service.NewQuestionSelector(gateway, logger)
	eliminator := service.NewEliminationEngine(gateway, logger)
	recommender := service.NewRecommender(gateway, logger)
	flow := service.NewFlowController(personaSvc, scoringSvc, selector, eliminator, recommender, logger)
	agents := service.NewAgentFlow(gateway, logger)

	for {
		fmt.Println("===== CineMatch CLI =====")
		fmt.Println("[1] Flujo por pasos (preguntas A/B)")
		fmt.Println("[2] Chat multi-agente")
		fmt.Println("[3] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			if err := runStepFlow(ctx, reader, flow); err != nil {
				fmt.Printf("Error en flujo: %v\n", err)
			}
		case "2":
			if err := runAgentFlow(ctx, reader, agents); err != nil {
				fmt.Printf("Error en chat: %v\n", err)
			}
		case "3":
			os.Exit(0)
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func runStepFlow(ctx context.Context, reader *bufio.Reader, flow *service.FlowController) error {
	sess := domain.NewSession(uuid.NewString(), domain.ModeStepMachine)

	liked := readMovieList(reader, "Peliculas que te gustaron (separadas por coma): ")
	disliked := readMovieList(reader, "Peliculas que no te gustaron (opcional, coma): ")

	if err := flow.SubmitPreferences(sess, liked, disliked); err != nil {
		return err
	}

	fmt.Println("\nGenerando perfiles candidatos. Por favor, espere...")
	for sess.State != domain.StateFollowUpQA {
		switch sess.State {
		case domain.StateAwaitAnswer:
			if err := askAndAnswer(ctx, reader, flow, sess); err != nil {
				return err
			}
		default:
			if err := flow.Advance(ctx, sess); err != nil {
				return err
			}
		}
		printWarnings(sess)
		if sess.State == domain.StateRecommend {
			fmt.Printf("\nPerfil final: %s\n", sess.FinalProfile.BasicInfo)
		}
	}

	rec, err := flow.Recommendation(ctx, sess)
	if err != nil {
		return err
	}
	printRecommendation(rec)

	pairs, err := flow.FollowUp(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Println("\nPreguntas frecuentes sobre la recomendacion:")
	for _, p := range pairs {
		fmt.Printf("  P: %s\n  R: %s\n", p.Question, p.Answer)
	}
	printWarnings(sess)
	return nil
}

func askAndAnswer(ctx context.Context, reader *bufio.Reader, flow *service.FlowController, sess *domain.Session) error {
	q := sess.Pending
	fmt.Printf("\n[Pregunta %d] %s\n", len(sess.History)+1, q.Question)
	for i, text := range domain.ChoiceTexts(*q) {
		fmt.Printf("  [%d] %s\n", i, text)
	}

	for {
		fmt.Print("Tu eleccion (0-4): ")
		line, _ := reader.ReadString('\n')
		idx, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || !domain.AnswerChoice(idx).Valid() {
			fmt.Println("Eleccion invalida.")
			continue
		}
		return flow.SubmitAnswer(ctx, sess, domain.AnswerChoice(idx))
	}
}

func runAgentFlow(ctx context.Context, reader *bufio.Reader, agents *service.AgentFlow) error {
	sess := domain.NewSession(uuid.NewString(), domain.ModeMultiAgent)

	fmt.Print("Peliculas que te gustaron: ")
	liked, _ := reader.ReadString('\n')
	fmt.Print("Peliculas que no te gustaron (opcional): ")
	disliked, _ := reader.ReadString('\n')

	if err := agents.Start(ctx, sess, strings.TrimSpace(liked), strings.TrimSpace(disliked)); err != nil {
		return err
	}
	fmt.Printf("\nAsistente > %s\n", sess.Chat[len(sess.Chat)-1].Content)

	for !agents.Done(sess) {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		msg, err := agents.Chat(ctx, sess, text)
		if err != nil {
			return err
		}
		fmt.Printf("Asistente > %s\n", msg.Content)
		printWarnings(sess)
	}

	fmt.Println("\nPreparando recomendacion final. Por favor, espere...")
	rec, err := agents.Recommend(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Printf("\nPelicula recomendada: %s (%s)\n", rec.MovieTitle, rec.Year)
	fmt.Printf("Genero: %s\n", rec.Genre)
	fmt.Printf("Por que: %s\n", rec.Reason)
	fmt.Printf("Punto de match: %s\n", rec.MatchPoint)
	printWarnings(sess)
	return nil
}

func readMovieList(reader *bufio.Reader, prompt string) []string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	parts := strings.Split(line, ",")
	var movies []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			movies = append(movies, t)
		}
	}
	return movies
}

func printRecommendation(rec domain.Recommendation) {
	fmt.Printf("\nPelicula recomendada: %s (%s)\n", rec.RecommendedMovie, rec.Year)
	fmt.Printf("Genero: %s\n", strings.Join(rec.Genre, ", "))
	fmt.Printf("Director: %s\n", rec.Director)
	fmt.Printf("Reparto: %s\n", strings.Join(rec.MainCast, ", "))
	fmt.Printf("Por que: %s\n", rec.Reason)
	for _, p := range rec.MatchPoints {
		fmt.Printf("  - %s\n", p)
	}
	if len(rec.StreamingPlatforms) > 0 {
		fmt.Printf("Disponible en: %s\n", strings.Join(rec.StreamingPlatforms, ", "))
	}
}

func printWarnings(sess *domain.Session) {
	for _, w := range sess.DrainWarnings() {
		fmt.Printf("  (aviso: %s)\n", w)
	}
}
