package monitor

import (
	"sync"
	"time"
)

// Detector mantém a altura observada e o pulso de detecção do evento
// alvo. O pulso auto-limpa após a janela de dwell; detecção repetida
// dentro da janela rearma o MESMO timer em vez de agendar limpezas
// independentes.
type Detector struct {
	mu     sync.Mutex
	target string
	dwell  time.Duration

	height uint64
	active bool
	timer  *time.Timer
}

func NewDetector(target string, dwell time.Duration) *Detector {
	return &Detector{target: target, dwell: dwell}
}

// Target é o nome do evento de contrato que dispara o pulso.
func (d *Detector) Target() string { return d.target }

// ObserveHeight registra a altura de bloco de cada mensagem, com ou sem
// notificação correspondente.
func (d *Detector) ObserveHeight(h uint64) {
	d.mu.Lock()
	d.height = h
	d.mu.Unlock()
}

// Trigger ativa o pulso e (re)arma o timer de dwell.
func (d *Detector) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.dwell, d.clear)
		return
	}
	d.timer.Reset(d.dwell)
}

func (d *Detector) clear() {
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
}

// Snapshot retorna altura corrente e se o pulso está ativo.
func (d *Detector) Snapshot() (height uint64, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height, d.active
}

// Stop cancela o timer pendente (teardown do processo).
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
