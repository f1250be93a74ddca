package web

import "github.com/gofiber/fiber/v2"

// handleDashboardJS serves the dashboard JavaScript
func (s *Server) handleDashboardJS(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript; charset=utf-8")
	return c.SendString(dashboardJS)
}

// handleDashboardCSS serves the dashboard CSS
func (s *Server) handleDashboardCSS(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	return c.SendString(dashboardCSS)
}

const dashboardCSS = `:root {
    --bg-primary: #0a0a0f;
    --bg-secondary: #12121a;
    --bg-tertiary: #1a1a24;
    --text-primary: #ffffff;
    --text-secondary: #a0a0b0;
    --text-muted: #606070;
    --accent-primary: #00d4ff;
    --accent-secondary: #7c3aed;
    --accent-success: #10b981;
    --accent-warning: #f59e0b;
    --accent-danger: #ef4444;
    --border-color: rgba(255, 255, 255, 0.08);
    --radius: 12px;
    --font-mono: 'JetBrains Mono', monospace;
    --font-sans: 'Inter', -apple-system, BlinkMacSystemFont, sans-serif;
}

* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

[hidden] {
    display: none !important;
}

body {
    font-family: var(--font-sans);
    background: var(--bg-primary);
    color: var(--text-primary);
    min-height: 100vh;
}

.app {
    display: flex;
    min-height: 100vh;
}

/* Sidebar */
.sidebar {
    width: 240px;
    background: var(--bg-secondary);
    border-right: 1px solid var(--border-color);
    display: flex;
    flex-direction: column;
    position: fixed;
    height: 100vh;
}

.logo {
    padding: 24px;
    display: flex;
    align-items: center;
    gap: 12px;
    border-bottom: 1px solid var(--border-color);
}

.logo-icon {
    font-size: 28px;
}

.logo-text {
    font-size: 20px;
    font-weight: 700;
    color: var(--accent-primary);
}

.nav {
    padding: 16px 12px;
    flex: 1;
}

.nav-item {
    display: block;
    padding: 12px 16px;
    margin-bottom: 4px;
    border-radius: 8px;
    color: var(--text-secondary);
    text-decoration: none;
}

.nav-item:hover {
    background: var(--bg-tertiary);
    color: var(--text-primary);
}

.nav-item.active {
    background: rgba(0, 212, 255, 0.1);
    color: var(--accent-primary);
}

.profile {
    display: flex;
    align-items: center;
    gap: 12px;
    padding: 16px;
    border-top: 1px solid var(--border-color);
}

.avatar {
    width: 36px;
    height: 36px;
    border-radius: 50%;
    background: var(--accent-secondary);
    display: flex;
    align-items: center;
    justify-content: center;
    font-weight: 700;
    overflow: hidden;
}

.avatar img {
    width: 100%;
    height: 100%;
}

.user-info {
    display: flex;
    flex-direction: column;
    font-size: 13px;
}

.user-info span:last-child {
    color: var(--text-muted);
}

/* Main */
.main {
    flex: 1;
    margin-left: 240px;
    padding: 24px 32px;
}

.header {
    display: flex;
    justify-content: space-between;
    align-items: center;
    margin-bottom: 24px;
}

.status {
    display: flex;
    align-items: center;
    gap: 12px;
}

.status-threat {
    color: var(--accent-danger);
}

.status-safe {
    color: var(--accent-success);
}

.card {
    background: var(--bg-secondary);
    border: 1px solid var(--border-color);
    border-radius: var(--radius);
    padding: 20px;
    margin-bottom: 20px;
}

.card.urgent {
    border-color: rgba(239, 68, 68, 0.4);
}

.card-title {
    font-size: 16px;
    margin-bottom: 16px;
}

.mono {
    font-family: var(--font-mono);
}

/* Emails */
.email-item, .blocked-item {
    display: flex;
    align-items: center;
    gap: 16px;
    padding: 12px 0;
    border-bottom: 1px solid var(--border-color);
}

.email-main, .blocked-info {
    flex: 1;
}

.email-main p, .blocked-info p, .email-time {
    color: var(--text-secondary);
    font-size: 13px;
}

.risk-indicator {
    width: 48px;
    font-family: var(--font-mono);
    font-weight: 700;
    color: var(--accent-success);
}

.risk-indicator.high {
    color: var(--accent-warning);
}

.risk-indicator.critical {
    color: var(--accent-danger);
}

.badge, .risk-badge, .state-pill, .auto-label, .manual-label, .auto-blocked-badge {
    font-size: 11px;
    padding: 2px 8px;
    border-radius: 999px;
    background: var(--bg-tertiary);
}

.risk-badge.danger, .auto-blocked-badge, .auto-label {
    background: rgba(239, 68, 68, 0.2);
    color: var(--accent-danger);
}

.risk-badge.warning {
    background: rgba(245, 158, 11, 0.2);
    color: var(--accent-warning);
}

.risk-badge.success {
    background: rgba(16, 185, 129, 0.2);
    color: var(--accent-success);
}

.empty-state {
    color: var(--text-muted);
    text-align: center;
    padding: 32px;
}

/* Tables */
.log-table {
    width: 100%;
    border-collapse: collapse;
    font-size: 13px;
}

.log-table th, .log-table td {
    text-align: left;
    padding: 10px 8px;
    border-bottom: 1px solid var(--border-color);
}

.log-table th {
    color: var(--text-muted);
    font-weight: 500;
}

.score-critical {
    color: var(--accent-danger);
    font-weight: 700;
}

/* Urgent alerts */
.urgent-card {
    display: flex;
    gap: 16px;
    align-items: center;
    padding: 16px;
    margin-bottom: 12px;
    border-radius: var(--radius);
    background: rgba(239, 68, 68, 0.06);
}

.risk-score-badge {
    font-family: var(--font-mono);
    font-size: 20px;
    font-weight: 700;
    text-align: center;
    color: var(--accent-warning);
}

.risk-score-badge span {
    display: block;
    font-size: 10px;
}

.risk-score-badge.critical {
    color: var(--accent-danger);
}

.alert-content {
    flex: 1;
}

.reason-box {
    margin-top: 8px;
    padding: 8px 12px;
    border-radius: 8px;
    background: var(--bg-tertiary);
    font-size: 13px;
}

/* Buttons */
button {
    font: inherit;
    cursor: pointer;
    border: none;
    border-radius: 8px;
    padding: 8px 14px;
}

button:disabled {
    cursor: not-allowed;
    opacity: 0.5;
}

.action-btn, .btn-block-small, .btn-confirm {
    background: var(--accent-danger);
    color: var(--text-primary);
}

.btn-unblock, .btn-cancel {
    background: var(--bg-tertiary);
    color: var(--text-primary);
}

/* Modal */
.modal {
    position: fixed;
    inset: 0;
    background: rgba(0, 0, 0, 0.6);
    display: flex;
    align-items: center;
    justify-content: center;
    z-index: 200;
}

.modal-content {
    background: var(--bg-secondary);
    border: 1px solid var(--border-color);
    border-radius: var(--radius);
    padding: 24px;
    min-width: 360px;
}

.modal-actions {
    display: flex;
    justify-content: flex-end;
    gap: 8px;
    margin-top: 20px;
}

/* Toast */
.toast {
    position: fixed;
    bottom: 24px;
    right: 24px;
    padding: 12px 20px;
    border-radius: 8px;
    background: var(--bg-tertiary);
    border: 1px solid var(--border-color);
    z-index: 300;
}

.toast.error {
    border-color: var(--accent-danger);
}
`

const dashboardJS = `// AegisAI Dashboard JavaScript

class AegisDashboard {
    constructor() {
        this.ws = null;
        this.toastTimer = null;

        this.init();
    }

    init() {
        this.bindEvents();
        this.connectWebSocket();
    }

    bindEvents() {
        // Fragments are replaced wholesale, so listen at the document
        document.addEventListener('click', (e) => {
            const el = e.target.closest('[data-action]');
            if (!el || el.disabled) return;
            e.preventDefault();

            switch (el.dataset.action) {
                case 'navigate':
                    this.navigateTo(el.dataset.view);
                    break;
                case 'block':
                    this.block(el.dataset);
                    break;
                case 'block-confirm':
                    this.confirmBlock(el.dataset.id);
                    break;
                case 'block-cancel':
                    this.cancelBlock();
                    break;
                case 'unblock':
                    this.unblock(el.dataset.sender);
                    break;
            }
        });
    }

    async post(url, body) {
        const res = await fetch(url, {
            method: 'POST',
            headers: { 'Content-Type': 'application/json' },
            credentials: 'same-origin',
            body: JSON.stringify(body || {})
        });
        const data = await res.json().catch(() => ({}));
        if (!res.ok) {
            throw new Error(data.error || res.statusText);
        }
        return data;
    }

    async navigateTo(view) {
        try {
            const data = await this.post('/views/' + encodeURIComponent(view));
            this.showPanels(data.panels);
        } catch (err) {
            this.toast(err.message, true);
        }
    }

    showPanels(panels) {
        panels.forEach(p => {
            const section = document.querySelector('section[data-view="' + p.View + '"]');
            if (section) section.hidden = !p.Visible;
            const nav = document.querySelector('.nav-item[data-view="' + p.View + '"]');
            if (nav) nav.classList.toggle('active', p.Visible);
            if (p.Visible) document.querySelector('.page-title').textContent = p.Title;
        });
    }

    async block(data) {
        try {
            const res = await this.post('/actions/block', { message_id: data.id });
            if (res.modal) this.applyFragment(res.modal);
            if (res.ack) this.showAck(res.ack);
        } catch (err) {
            this.toast(err.message, true);
        }
    }

    async confirmBlock(id) {
        try {
            const res = await this.post('/actions/block/confirm', { id: id });
            this.applyFragment(res.modal);
            this.showAck(res.ack);
        } catch (err) {
            this.toast(err.message, true);
        }
    }

    async cancelBlock() {
        try {
            const res = await this.post('/actions/block/cancel');
            this.applyFragment(res.modal);
        } catch (err) {
            this.toast(err.message, true);
        }
    }

    async unblock(sender) {
        if (!confirm('Unblock ' + sender + '?')) return;
        try {
            const res = await this.post('/actions/unblock', { sender_email: sender });
            this.showAck(res.ack);
        } catch (err) {
            this.toast(err.message, true);
        }
    }

    showAck(ack) {
        if (ack) this.toast(ack.message, !ack.ok);
    }

    toast(text, isError) {
        const el = document.getElementById('toast');
        el.textContent = text;
        el.classList.toggle('error', !!isError);
        el.hidden = false;
        clearTimeout(this.toastTimer);
        this.toastTimer = setTimeout(() => { el.hidden = true; }, 4000);
    }

    applyFragment(f) {
        const el = document.getElementById(f.target);
        if (!el) return;
        el.innerHTML = f.html;
        const section = el.closest('[data-section]');
        if (section) section.hidden = !f.visible;
    }

    connectWebSocket() {
        const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
        const wsUrl = protocol + '//' + window.location.host + '/ws';

        this.ws = new WebSocket(wsUrl);

        this.ws.onopen = () => {
            console.log('WebSocket connected');
        };

        this.ws.onmessage = (event) => {
            const message = JSON.parse(event.data);
            if (message.type === 'fragment') this.applyFragment(message);
        };

        this.ws.onclose = () => {
            console.log('WebSocket disconnected, reconnecting...');
            setTimeout(() => this.connectWebSocket(), 3000);
        };

        this.ws.onerror = (error) => {
            console.error('WebSocket error:', error);
        };
    }
}

document.addEventListener('DOMContentLoaded', () => {
    window.dashboard = new AegisDashboard();
});
`
